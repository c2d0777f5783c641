package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/log"
	"financebuddy/internal/report"
)

const readyTimeout = 5 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	})
}

// handleReady reports whether the transaction service answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ping == nil {
		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()
	if err := s.ping(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		writeJSON(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status":              "not_ready",
			"transaction_service": err.Error(),
		})
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ready", "transaction_service": "ok"})
}

// session is only called behind RequireSession.
func session(r *http.Request) identity.Session {
	sess, _ := identity.SessionFromContext(r.Context())
	return sess
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListParams(r.URL.Query(), s.svc.Location(), s.svc.PageSize())
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := s.svc.ListPage(r.Context(), session(r), params.Criteria, params.PageSize, params.Page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toPage(page, params.PageSize))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	raw, err := ReadRecord(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tx, err := s.svc.Create(r.Context(), session(r), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/transactions/"+tx.ID)
	writeJSON(r.Context(), w, http.StatusCreated, toTransaction(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if err := s.svc.Delete(r.Context(), session(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.Dashboard(r.Context(), session(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toDashboard(d))
}

// handleReport serves transactions.{csv,xlsx,pdf} for the filtered list.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	name, ext, ok := strings.Cut(r.PathValue("file"), ".")
	format, known := report.ParseFormat(ext)
	if !ok || name != "transactions" || !known {
		writeJSON(r.Context(), w, http.StatusNotFound, errorBody{Error: "unknown report"})
		return
	}

	criteria, err := ParseCriteria(r.URL.Query(), s.svc.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sess := session(r)
	txs, err := s.svc.Filtered(r.Context(), sess, criteria)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := report.NewData(sess.UserID, txs, s.svc.Location())
	data.Email = sess.Email
	s.render(w, r, format.ContentType(), format.Filename(), func(out io.Writer) error {
		return report.Write(out, format, data)
	})
}

// handleChart serves expenses.png or monthly.png for the filtered list.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	var draw func(io.Writer, core.AggregateSnapshot) error
	switch r.PathValue("file") {
	case "expenses.png":
		draw = report.RenderExpensePie
	case "monthly.png":
		draw = report.RenderMonthlyChart
	default:
		writeJSON(r.Context(), w, http.StatusNotFound, errorBody{Error: "unknown chart"})
		return
	}

	criteria, err := ParseCriteria(r.URL.Query(), s.svc.Location())
	if err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := s.svc.Filtered(r.Context(), session(r), criteria)
	if err != nil {
		writeError(w, r, err)
		return
	}
	snap := core.Aggregate(txs, s.svc.Location())
	s.render(w, r, "image/png", "", func(out io.Writer) error {
		return draw(out, snap)
	})
}

func (s *Server) handleRequestExport(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.RequestReport(r.Context(), session(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// render buffers a document so a failure can still produce an error
// status. An empty chart is 204.
func (s *Server) render(w http.ResponseWriter, r *http.Request, contentType, filename string, fn func(io.Writer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		if errors.Is(err, report.ErrNoData) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		ctx := r.Context()
		s.logger.ErrorContext(ctx, "Render failed", log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeInternal, log.FieldPath, r.URL.Path)
		writeJSON(ctx, w, http.StatusInternalServerError, errorBody{Error: "could not render document"})
		return
	}

	h := w.Header()
	h.Set("Content-Type", contentType)
	h.Set("Cache-Control", "no-store")
	if filename != "" {
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
