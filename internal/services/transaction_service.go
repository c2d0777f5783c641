package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"financebuddy/internal/amqp"
	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/ledger"
	"financebuddy/internal/log"
)

const (
	defaultPageSize = 10
	recentCount     = 5
)

// ErrExportDisabled is returned by RequestReport when no event publisher
// is configured.
var ErrExportDisabled = errors.New("report export is not configured")

// ErrInvalidUpstreamRecord is returned when the transaction service answers
// a write with a record that does not normalize. It is the service's fault,
// not the caller's.
var ErrInvalidUpstreamRecord = errors.New("transaction service returned an invalid record")

// EventPublisher announces changes to a user's transactions.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
}

// Options tunes a TransactionService. Zero values fall back to defaults.
type Options struct {
	Location *time.Location
	PageSize int
	Logger   *log.Logger
}

// TransactionService runs the pipeline between the transaction service and
// the views: fetch, normalize, then aggregate or filter and page.
type TransactionService struct {
	ledger   ledger.Ledger
	events   EventPublisher
	loc      *time.Location
	pageSize int
	logger   *log.Logger
	sl       *log.StructuredLogger
}

// NewTransactionService wires l and an optional publisher (nil disables
// events).
func NewTransactionService(l ledger.Ledger, events EventPublisher, opts Options) *TransactionService {
	if opts.Location == nil {
		opts.Location = core.ReferenceLocation
	}
	if opts.PageSize < 1 {
		opts.PageSize = defaultPageSize
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		ledger:   l,
		events:   events,
		loc:      opts.Location,
		pageSize: opts.PageSize,
		logger:   opts.Logger.WithComponent(log.ComponentEngine),
		sl:       log.NewStructuredLogger(opts.Logger),
	}
}

// Location is the zone used for month bucketing and day bounds.
func (s *TransactionService) Location() *time.Location { return s.loc }

// PageSize is the configured default page size.
func (s *TransactionService) PageSize() int { return s.pageSize }

// Loaded is one fetch of a user's transactions.
type Loaded struct {
	Collection core.Collection
	Rejected   []*core.NormalizationError
	// Duplicates lists ids seen more than once; only the first record is kept.
	Duplicates []string
	FetchedAt  time.Time
}

// Load fetches and normalizes every transaction of the session's user.
// Records that fail validation are logged and skipped.
func (s *TransactionService) Load(ctx context.Context, session identity.Session) (Loaded, error) {
	raws, err := s.ledger.ListTransactions(ctx, session)
	if err != nil {
		return Loaded{}, fmt.Errorf("list transactions: %w", err)
	}
	txs, rejected, err := core.NormalizeAll(raws)
	if err != nil {
		return Loaded{}, fmt.Errorf("normalize transactions: %w", err)
	}
	for _, r := range rejected {
		s.sl.LogRejected(ctx, session.UserID, r.Index, r.ID, string(r.Kind), r)
	}

	unique, dups := dedupe(txs)
	if len(dups) > 0 {
		s.logger.WarnContext(ctx, "Duplicate transaction ids dropped",
			log.FieldUserID, session.UserID,
			"ids", dups)
	}
	coll, err := core.NewCollection(unique)
	if err != nil {
		return Loaded{}, err
	}
	s.logger.DebugContext(ctx, "Transactions loaded",
		log.FieldUserID, session.UserID,
		log.FieldCount, coll.Len(),
		log.FieldRejected, len(rejected))
	return Loaded{Collection: coll, Rejected: rejected, Duplicates: dups, FetchedAt: time.Now()}, nil
}

func dedupe(txs []core.Transaction) ([]core.Transaction, []string) {
	seen := make(map[string]struct{}, len(txs))
	out := txs[:0:0]
	var dups []string
	for _, tx := range txs {
		if _, ok := seen[tx.ID]; ok {
			dups = append(dups, tx.ID)
			continue
		}
		seen[tx.ID] = struct{}{}
		out = append(out, tx)
	}
	return out, dups
}

// Dashboard is the aggregated view of one user's transactions.
type Dashboard struct {
	Snapshot   core.AggregateSnapshot
	Categories []core.CategoryTotal
	Recent     []core.Transaction
	Rejected   int
}

// BuildDashboard derives the dashboard of an already loaded collection.
func BuildDashboard(coll core.Collection, loc *time.Location) Dashboard {
	snap := coll.Snapshot(loc)
	return Dashboard{
		Snapshot:   snap,
		Categories: snap.SortedCategories(),
		Recent:     core.Latest(coll.Items(), recentCount),
	}
}

// Dashboard loads the session's transactions and builds their dashboard.
func (s *TransactionService) Dashboard(ctx context.Context, session identity.Session) (Dashboard, error) {
	loaded, err := s.Load(ctx, session)
	if err != nil {
		return Dashboard{}, err
	}
	d := BuildDashboard(loaded.Collection, s.loc)
	d.Rejected = len(loaded.Rejected)
	return d, nil
}

// Filtered returns every transaction matching criteria, in service order.
func (s *TransactionService) Filtered(ctx context.Context, session identity.Session, criteria core.Criteria) ([]core.Transaction, error) {
	loaded, err := s.Load(ctx, session)
	if err != nil {
		return nil, err
	}
	return loaded.Collection.Filter(criteria), nil
}

// List returns one page of matching transactions using the configured page
// size.
func (s *TransactionService) List(ctx context.Context, session identity.Session, criteria core.Criteria, page int) (core.Page, error) {
	return s.ListPage(ctx, session, criteria, s.pageSize, page)
}

// ListPage is List with an explicit page size.
func (s *TransactionService) ListPage(ctx context.Context, session identity.Session, criteria core.Criteria, pageSize, page int) (core.Page, error) {
	filtered, err := s.Filtered(ctx, session, criteria)
	if err != nil {
		return core.Page{}, err
	}
	return core.Paginate(filtered, pageSize, page)
}

// Create validates a create request, stores it and returns the canonical
// record the service handed back.
func (s *TransactionService) Create(ctx context.Context, session identity.Session, raw core.RawRecord) (core.Transaction, error) {
	n, err := core.ParseNewTransaction(raw)
	if err != nil {
		return core.Transaction{}, err
	}
	stored, err := s.ledger.CreateTransaction(ctx, session, n)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	tx, err := core.Normalize(stored)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", ErrInvalidUpstreamRecord, err)
	}
	s.sl.LogTransactionCreated(ctx, session.UserID, tx.ID, tx.Type.String(), tx.Amount.String())
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionCreated, session.UserID, tx.ID))
	return tx, nil
}

// Delete removes id. Callers drop the record locally only after a nil
// return.
func (s *TransactionService) Delete(ctx context.Context, session identity.Session, id string) error {
	if id == "" {
		return ledger.ErrNotFound
	}
	if err := s.ledger.DeleteTransaction(ctx, session, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	s.sl.LogTransactionDeleted(ctx, session.UserID, id)
	s.publish(ctx, amqp.NewTransactionEvent(amqp.TransactionDeleted, session.UserID, id))
	return nil
}

// RequestReport asks the report worker to export the user's data.
func (s *TransactionService) RequestReport(ctx context.Context, session identity.Session) error {
	if s.events == nil {
		return ErrExportDisabled
	}
	return s.events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(amqp.ReportRequested, session.UserID, ""))
}

// publish never fails the request: the change is already stored.
func (s *TransactionService) publish(ctx context.Context, ev *amqp.TransactionEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishTransactionEvent(ctx, ev); err != nil {
		s.sl.LogError(ctx, "Failed to publish transaction event", err,
			log.ComponentAMQP, string(ev.Kind), log.ErrorTypeUpstream)
	}
}
