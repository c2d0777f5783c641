package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financebuddy/internal/core"
)

const (
	dateLayout     = "2006-01-02"
	maxPageSize    = 100
	maxRequestBody = 64 << 10
)

// badRequest is an input problem reported verbatim to the caller.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// ListParams is the parsed query of a list or export request.
type ListParams struct {
	Criteria core.Criteria
	Page     int
	PageSize int
}

// ParseCriteria reads the type, q, from and to query parameters. Dates are
// calendar days in loc; both bounds are inclusive, so "to" covers the whole
// day.
func ParseCriteria(query url.Values, loc *time.Location) (core.Criteria, error) {
	var c core.Criteria

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		t, ok := core.ParseTransactionType(v)
		if !ok {
			return core.Criteria{}, badRequestf("invalid type %q: want income or expense", v)
		}
		s := t.String()
		c.Type = &s
	}
	if query.Has("q") {
		q := sanitizeInput(query.Get("q"))
		c.DescriptionContains = &q
	}

	from, err := parseDay(query.Get("from"), loc)
	if err != nil {
		return core.Criteria{}, badRequestf("invalid from date: %v", err)
	}
	if !from.IsZero() {
		c.DateFrom = &from
	}
	to, err := parseDay(query.Get("to"), loc)
	if err != nil {
		return core.Criteria{}, badRequestf("invalid to date: %v", err)
	}
	if !to.IsZero() {
		end := to.AddDate(0, 0, 1).Add(-time.Nanosecond)
		c.DateTo = &end
	}
	if c.DateFrom != nil && c.DateTo != nil && c.DateTo.Before(*c.DateFrom) {
		return core.Criteria{}, badRequestf("from date is after to date")
	}
	return c, nil
}

// parseDay returns midnight of a YYYY-MM-DD day in loc, or the zero time
// for an empty value.
func parseDay(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = core.ReferenceLocation
	}
	return time.ParseInLocation(dateLayout, v, loc)
}

// ParseListParams reads the filters plus page and pageSize. A missing page
// is 1; a missing pageSize is defaultSize.
func ParseListParams(query url.Values, loc *time.Location, defaultSize int) (ListParams, error) {
	c, err := ParseCriteria(query, loc)
	if err != nil {
		return ListParams{}, err
	}
	p := ListParams{Criteria: c, Page: 1, PageSize: defaultSize}

	if v := strings.TrimSpace(query.Get("page")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ListParams{}, badRequestf("invalid page %q", v)
		}
		p.Page = n
	}
	if v := strings.TrimSpace(query.Get("pageSize")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ListParams{}, badRequestf("invalid pageSize %q", v)
		}
		if n > maxPageSize {
			return ListParams{}, badRequestf("pageSize must be at most %d", maxPageSize)
		}
		p.PageSize = n
	}
	return p, nil
}

// ReadRecord decodes a JSON object body into a raw record, keeping numbers
// exact and stripping control characters from the description.
func ReadRecord(w http.ResponseWriter, r *http.Request) (core.RawRecord, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequestf("request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, fmt.Errorf("read request body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, badRequestf("request body is empty")
	}
	rec, err := core.DecodeRecord(body)
	if err != nil {
		return nil, badRequestf("request body must be a JSON object")
	}
	if d, ok := rec["description"].(string); ok {
		rec["description"] = sanitizeInput(d)
	}
	return rec, nil
}

// sanitizeInput trims s and drops control characters other than tab,
// newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		if r == 127 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
