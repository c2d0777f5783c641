package worker

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"financebuddy/internal/amqp"
	"financebuddy/internal/core"
	"financebuddy/internal/identity"
	"financebuddy/internal/log"
	"financebuddy/internal/report"
	"financebuddy/internal/services"
	"financebuddy/internal/sheets"
)

// Config holds configuration for the report worker
type Config struct {
	// RefreshInterval is how often every known book is refreshed (default: 10s)
	RefreshInterval time.Duration
	Location        *time.Location
}

func DefaultConfig() Config {
	return Config{
		RefreshInterval: 10 * time.Second,
		Location:        core.ReferenceLocation,
	}
}

// ReportWorker keeps one Book per user seen on the event stream and exports
// a fresh report whenever a user's transactions change.
type ReportWorker struct {
	loader   services.Loader
	exporter sheets.ReportExporter
	config   Config
	logger   *log.Logger

	booksMu sync.Mutex
	books   map[string]*services.Book
	// last exported fingerprint per user
	exported map[string]uint64

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewReportWorker(loader services.Loader, exporter sheets.ReportExporter, config Config, logger *log.Logger) *ReportWorker {
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = DefaultConfig().RefreshInterval
	}
	if config.Location == nil {
		config.Location = core.ReferenceLocation
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportWorker{
		loader:   loader,
		exporter: exporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		books:    make(map[string]*services.Book),
		exported: make(map[string]uint64),
	}
}

// HandleEvent applies one event from the queue. A returned error makes the
// consumer requeue the message.
func (w *ReportWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		"kind", ev.Kind,
		log.FieldUserID, ev.UserID,
		log.FieldTransactionID, ev.TransactionID)

	book := w.book(ev.UserID)
	force := false
	switch ev.Kind {
	case amqp.TransactionCreated:
		if _, err := book.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh after create: %w", err)
		}
	case amqp.TransactionDeleted:
		if _, ok := book.Current(); !ok {
			if _, err := book.Refresh(ctx); err != nil {
				return fmt.Errorf("refresh after delete: %w", err)
			}
		} else if !book.Remove(ev.TransactionID) {
			w.logger.DebugContext(ctx, "Deleted transaction was not in the book",
				log.FieldUserID, ev.UserID,
				log.FieldTransactionID, ev.TransactionID)
		}
	case amqp.ReportRequested:
		if _, err := book.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh for report: %w", err)
		}
		force = true
	default:
		return fmt.Errorf("unknown event kind: %s", ev.Kind)
	}
	return w.export(ctx, ev.UserID, book, force)
}

// RefreshAll refreshes every known book and exports the ones that changed.
// Failures are logged per user and do not stop the sweep.
func (w *ReportWorker) RefreshAll(ctx context.Context) {
	w.booksMu.Lock()
	users := make([]string, 0, len(w.books))
	for uid := range w.books {
		users = append(users, uid)
	}
	w.booksMu.Unlock()
	sort.Strings(users)

	for _, uid := range users {
		if ctx.Err() != nil {
			return
		}
		book := w.book(uid)
		if _, err := book.Refresh(ctx); err != nil {
			w.logger.WarnContext(ctx, "Periodic refresh failed",
				log.FieldUserID, uid,
				log.FieldError, err.Error())
			continue
		}
		if err := w.export(ctx, uid, book, false); err != nil {
			w.logger.WarnContext(ctx, "Periodic export failed",
				log.FieldUserID, uid,
				log.FieldError, err.Error())
		}
	}
}

// Users returns the ids of the users with a book.
func (w *ReportWorker) Users() []string {
	w.booksMu.Lock()
	defer w.booksMu.Unlock()
	out := make([]string, 0, len(w.books))
	for uid := range w.books {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

func (w *ReportWorker) book(userID string) *services.Book {
	w.booksMu.Lock()
	defer w.booksMu.Unlock()
	b, ok := w.books[userID]
	if !ok {
		b = services.NewBook(w.loader, identity.Session{UserID: userID})
		w.books[userID] = b
	}
	return b
}

// export skips users whose collection is unchanged since the last export
// unless force is set.
func (w *ReportWorker) export(ctx context.Context, userID string, book *services.Book, force bool) error {
	coll, ok := book.Current()
	if !ok {
		return errors.New("book has no collection")
	}
	fp := fingerprint(coll)

	w.booksMu.Lock()
	last, seen := w.exported[userID]
	w.booksMu.Unlock()
	if seen && last == fp && !force {
		return nil
	}

	d := report.NewData(userID, coll.Items(), w.config.Location)
	ref, err := w.exporter.Export(ctx, d)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}

	w.booksMu.Lock()
	w.exported[userID] = fp
	w.booksMu.Unlock()

	w.logger.InfoContext(ctx, "Exported report",
		log.FieldUserID, userID,
		log.FieldCount, coll.Len(),
		"ref", ref)
	return nil
}

func fingerprint(coll core.Collection) uint64 {
	h := fnv.New64a()
	for _, tx := range coll.Items() {
		fmt.Fprintf(h, "%s|%s|%s|%s|%d\n", tx.ID, tx.Type, tx.Amount.String(), tx.Description, tx.Date.UnixNano())
	}
	return h.Sum64()
}

// Start begins the periodic refresh loop. Returns an error if already running.
func (w *ReportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("report worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Report worker started", "refresh_interval", w.config.RefreshInterval)
	return nil
}

// Stop signals the loop and waits for it to finish.
func (w *ReportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.InfoContext(ctx, "Report worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Report worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the refresh loop is running
func (w *ReportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ReportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RefreshAll(ctx)
		}
	}
}
