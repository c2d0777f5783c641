package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
	"financebuddy/internal/log"
	"financebuddy/internal/services"
)

// Transaction is the wire form of core.Transaction. Amounts are JSON
// numbers written from the exact decimal.
type Transaction struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
	UserID      string      `json:"userId,omitempty"`
}

type CategoryTotal struct {
	Category string      `json:"category"`
	Amount   json.Number `json:"amount"`
}

type MonthlyPoint struct {
	Period  string      `json:"period"`
	Label   string      `json:"label"`
	Income  json.Number `json:"income"`
	Expense json.Number `json:"expense"`
}

type Summary struct {
	TotalIncome  json.Number `json:"totalIncome"`
	TotalExpense json.Number `json:"totalExpense"`
	Balance      json.Number `json:"balance"`
	Count        int         `json:"count"`
}

type Dashboard struct {
	Summary
	Categories []CategoryTotal `json:"categories"`
	Monthly    []MonthlyPoint  `json:"monthly"`
	Recent     []Transaction   `json:"recent"`
	Rejected   int             `json:"rejected"`
}

type Page struct {
	Items       []Transaction `json:"items"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	TotalItems  int           `json:"totalItems"`
	PageSize    int           `json:"pageSize"`
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func toTransaction(tx core.Transaction) Transaction {
	return Transaction{
		ID:          tx.ID,
		Type:        tx.Type.String(),
		Amount:      json.Number(tx.Amount.String()),
		Description: tx.Description,
		Date:        tx.Date.UTC().Format(time.RFC3339Nano),
		UserID:      tx.UserID,
	}
}

func toTransactions(txs []core.Transaction) []Transaction {
	out := make([]Transaction, len(txs))
	for i, tx := range txs {
		out[i] = toTransaction(tx)
	}
	return out
}

func toPage(p core.Page, size int) Page {
	return Page{
		Items:       toTransactions(p.Items),
		TotalPages:  p.TotalPages,
		CurrentPage: p.CurrentPage,
		TotalItems:  p.TotalItems,
		PageSize:    size,
	}
}

func toDashboard(d services.Dashboard) Dashboard {
	snap := d.Snapshot
	out := Dashboard{
		Summary: Summary{
			TotalIncome:  json.Number(snap.TotalIncome.String()),
			TotalExpense: json.Number(snap.TotalExpense.String()),
			Balance:      json.Number(snap.Balance.String()),
			Count:        snap.Count,
		},
		Categories: make([]CategoryTotal, len(d.Categories)),
		Monthly:    make([]MonthlyPoint, len(snap.MonthlySeries)),
		Recent:     toTransactions(d.Recent),
		Rejected:   d.Rejected,
	}
	for i, c := range d.Categories {
		out.Categories[i] = CategoryTotal{Category: c.Category, Amount: json.Number(c.Amount.String())}
	}
	for i, m := range snap.MonthlySeries {
		out.Monthly[i] = MonthlyPoint{
			Period:  m.Period.Label(),
			Label:   m.Period.Start(time.UTC).Format("Jan 2006"),
			Income:  json.Number(m.Income.String()),
			Expense: json.Number(m.Expense.String()),
		}
	}
	return out
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(ctx).WithComponent(log.ComponentHTTP).WarnContext(ctx, "Failed to encode response", log.FieldError, err)
	}
}

// statusFor maps an error to the response status and body.
func statusFor(err error) (int, errorBody) {
	var bad *badRequest
	var norm *core.NormalizationError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, errorBody{Error: bad.msg}
	case errors.As(err, &norm):
		return http.StatusBadRequest, errorBody{Error: norm.Error(), Kind: string(norm.Kind), Field: norm.Field}
	case errors.Is(err, core.ErrInvalidPageSize):
		return http.StatusBadRequest, errorBody{Error: err.Error()}
	case errors.Is(err, identity.ErrUnauthenticated), errors.Is(err, ledger.ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{Error: "authentication required"}
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "transaction not found"}
	case errors.Is(err, services.ErrInvalidUpstreamRecord):
		return http.StatusBadGateway, errorBody{Error: "transaction service returned an invalid record"}
	case errors.Is(err, services.ErrExportDisabled):
		return http.StatusServiceUnavailable, errorBody{Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, errorBody{Error: "transaction service timed out"}
	default:
		return http.StatusBadGateway, errorBody{Error: "transaction service unavailable"}
	}
}

// writeError writes err as {"error": ...}. Server side failures are logged
// with the full error; the caller only sees a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status, body := statusFor(err)

	logger := log.FromContext(ctx).WithComponent(log.ComponentHTTP)
	switch {
	case status >= 500:
		logger.ErrorContext(ctx, "Request failed", log.FieldError, err, log.FieldStatusCode, status,
			log.FieldErrorType, log.ErrorTypeUpstream, log.FieldPath, r.URL.Path)
	case status == http.StatusUnauthorized:
		w.Header().Set("WWW-Authenticate", `Bearer realm="financebuddy"`)
		logger.WarnContext(ctx, "Request not authenticated", log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeAuth, log.FieldPath, r.URL.Path)
	}
	writeJSON(ctx, w, status, body)
}
