package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizationKind classifies why a raw record was rejected. InvalidType,
// InvalidAmount and InvalidDate cover the field checks. InvalidRecord marks
// an item that is not an object at all, and InvalidID a record without an
// id.
type NormalizationKind string

const (
	InvalidRecord NormalizationKind = "invalid_record"
	InvalidType   NormalizationKind = "invalid_type"
	InvalidAmount NormalizationKind = "invalid_amount"
	InvalidDate   NormalizationKind = "invalid_date"
	InvalidID     NormalizationKind = "invalid_id"
)

// NormalizationError reports a single rejected record. Index is the
// position in the batch, or -1 when the record was normalized on its own.
type NormalizationError struct {
	Kind  NormalizationKind
	Field string
	Index int
	ID    string
	Err   error
}

// Sentinels for errors.Is; they match any NormalizationError of the same kind.
var (
	ErrInvalidRecord = &NormalizationError{Kind: InvalidRecord}
	ErrInvalidType   = &NormalizationError{Kind: InvalidType}
	ErrInvalidAmount = &NormalizationError{Kind: InvalidAmount}
	ErrInvalidDate   = &NormalizationError{Kind: InvalidDate}
	ErrInvalidID     = &NormalizationError{Kind: InvalidID}
)

func (e *NormalizationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Index >= 0 {
		fmt.Fprintf(&b, " at index %d", e.Index)
	}
	if e.ID != "" {
		fmt.Fprintf(&b, " (id %s)", e.ID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *NormalizationError) Unwrap() error { return e.Err }

func (e *NormalizationError) Is(target error) bool {
	t, ok := target.(*NormalizationError)
	return ok && t.Kind == e.Kind
}

// Normalize validates a raw record and returns its canonical form.
func Normalize(raw RawRecord) (Transaction, error) {
	return normalizeAt(raw, -1)
}

// NormalizeAll normalizes every record of a decoded payload. Rejected records
// are returned alongside the accepted ones and never stop the batch. Payloads
// that are not a list fail with ErrInvalidInput.
func NormalizeAll(payload any) ([]Transaction, []*NormalizationError, error) {
	var records []RawRecord
	switch p := payload.(type) {
	case []RawRecord:
		records = p
	case []any:
		records = make([]RawRecord, len(p))
		for i, item := range p {
			if m, ok := item.(map[string]any); ok {
				records[i] = m
			}
		}
	default:
		return nil, nil, ErrInvalidInput
	}

	txs := make([]Transaction, 0, len(records))
	var rejected []*NormalizationError
	for i, raw := range records {
		tx, err := normalizeAt(raw, i)
		if err != nil {
			var nerr *NormalizationError
			if errors.As(err, &nerr) {
				rejected = append(rejected, nerr)
				continue
			}
			return nil, nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rejected, nil
}

func normalizeAt(raw RawRecord, idx int) (Transaction, error) {
	if raw == nil {
		return Transaction{}, &NormalizationError{Kind: InvalidRecord, Index: idx, Err: errors.New("record is not an object")}
	}
	id := recordID(raw)
	fail := func(kind NormalizationKind, field string, err error) (Transaction, error) {
		return Transaction{}, &NormalizationError{Kind: kind, Field: field, Index: idx, ID: id, Err: err}
	}

	typ, err := parseTypeField(raw["type"])
	if err != nil {
		return fail(InvalidType, "type", err)
	}
	amount, err := ParseAmount(raw["amount"])
	if err != nil {
		return fail(InvalidAmount, "amount", err)
	}
	date, err := ParseDate(raw["date"])
	if err != nil {
		return fail(InvalidDate, "date", err)
	}
	if id == "" {
		return fail(InvalidID, "id", errors.New("id is missing"))
	}

	return Transaction{
		ID:          id,
		Type:        typ,
		Amount:      amount,
		Description: stringField(raw["description"]),
		Date:        date,
		UserID:      firstString(raw, "userId", "user_id"),
	}, nil
}

// ParseNewTransaction validates a create request body. The id is assigned
// later by the transaction service.
func ParseNewTransaction(raw RawRecord) (NewTransaction, error) {
	if raw == nil {
		return NewTransaction{}, &NormalizationError{Kind: InvalidRecord, Index: -1, Err: errors.New("record is not an object")}
	}
	typ, err := parseTypeField(raw["type"])
	if err != nil {
		return NewTransaction{}, &NormalizationError{Kind: InvalidType, Field: "type", Index: -1, Err: err}
	}
	amount, err := ParseAmount(raw["amount"])
	if err != nil {
		return NewTransaction{}, &NormalizationError{Kind: InvalidAmount, Field: "amount", Index: -1, Err: err}
	}
	date, err := ParseDate(raw["date"])
	if err != nil {
		return NewTransaction{}, &NormalizationError{Kind: InvalidDate, Field: "date", Index: -1, Err: err}
	}
	return NewTransaction{
		Type:        typ,
		Amount:      amount,
		Description: strings.TrimSpace(stringField(raw["description"])),
		Date:        date,
	}, nil
}

// ParseDate accepts RFC 3339 timestamps and time.Time values. A timestamp
// without an offset is not an absolute instant and is rejected.
func ParseDate(v any) (time.Time, error) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, errors.New("date is missing")
	case time.Time:
		if x.IsZero() {
			return time.Time{}, errors.New("date is zero")
		}
		return x.UTC(), nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, errors.New("date is missing")
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("date has unsupported type %T", v)
	}
}

// DecodeRecords decodes a transaction service response body. Numbers are
// kept as json.Number so amounts stay exact. Items that are not objects are
// kept as nil records so normalization can report them by index.
func DecodeRecords(data []byte) ([]RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	items, ok := payload.([]any)
	if !ok {
		return nil, ErrInvalidInput
	}
	records := make([]RawRecord, len(items))
	for i, item := range items {
		if m, ok := item.(map[string]any); ok {
			records[i] = m
		}
	}
	return records, nil
}

// DecodeRecord decodes a single record, e.g. the body of a create response.
func DecodeRecord(data []byte) (RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec RawRecord
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		return nil, ErrInvalidInput
	}
	return rec, nil
}

func parseTypeField(v any) (TransactionType, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("type must be a string, got %T", v)
	}
	typ, ok := ParseTransactionType(s)
	if !ok {
		return "", fmt.Errorf("unknown type %q", s)
	}
	return typ, nil
}

func recordID(raw RawRecord) string {
	for _, key := range []string{"id", "_id"} {
		switch x := raw[key].(type) {
		case string:
			if s := strings.TrimSpace(x); s != "" {
				return s
			}
		case json.Number:
			return x.String()
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(x, 10)
		case int:
			return strconv.Itoa(x)
		}
	}
	return ""
}

func stringField(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func firstString(raw RawRecord, keys ...string) string {
	for _, k := range keys {
		if s, ok := raw[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
