// Package remote talks to an external REST transaction service:
//
//	GET    /transactions        -> [record, ...]
//	POST   /transactions        -> record
//	DELETE /transactions/{id}   -> confirmation
//
// Every call forwards the caller's bearer token.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
)

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

type Client struct {
	baseURL *url.URL
	http    *http.Client
}

var _ ledger.Ledger = (*Client)(nil)

// StatusError is returned for unexpected HTTP statuses.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// New builds a client for baseURL. timeout bounds each request.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http(s), got %q", baseURL)
	}
	return &Client{baseURL: u, http: newHTTPClientWithPooling(timeout)}, nil
}

// newHTTPClientWithPooling keeps connections to the service warm between
// dashboard refreshes.
func newHTTPClientWithPooling(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// ListTransactions implements ledger.TransactionLister
func (c *Client) ListTransactions(ctx context.Context, s identity.Session) ([]core.RawRecord, error) {
	body, err := c.do(ctx, s, http.MethodGet, "/transactions", nil, http.StatusOK)
	if err != nil {
		return nil, err
	}
	records, err := core.DecodeRecords(body)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return records, nil
}

// CreateTransaction implements ledger.TransactionWriter
func (c *Client) CreateTransaction(ctx context.Context, s identity.Session, n core.NewTransaction) (core.RawRecord, error) {
	payload, err := json.Marshal(n.Raw())
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	body, err := c.do(ctx, s, http.MethodPost, "/transactions", payload, http.StatusOK, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	rec, err := core.DecodeRecord(body)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	return rec, nil
}

// DeleteTransaction implements ledger.TransactionDeleter
func (c *Client) DeleteTransaction(ctx context.Context, s identity.Session, id string) error {
	if strings.TrimSpace(id) == "" {
		return ledger.ErrNotFound
	}
	_, err := c.do(ctx, s, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, http.StatusOK, http.StatusAccepted, http.StatusNoContent)
	return err
}

func (c *Client) do(ctx context.Context, s identity.Session, method, path string, payload []byte, okCodes ...int) ([]byte, error) {
	if s.Token == "" {
		return nil, ledger.ErrUnauthorized
	}
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	for _, code := range okCodes {
		if resp.StatusCode == code {
			return body, nil
		}
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ledger.ErrUnauthorized
	case http.StatusNotFound:
		return nil, ledger.ErrNotFound
	}
	return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: snippet(body)}
}

func snippet(b []byte) string {
	const max = 200
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
