package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"giveaway/metrics"
	"giveaway/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AuditLogOptions configures the background audit writer
type AuditLogOptions struct {
	QueueSize      int
	MaxAttempts    int
	InitialBackoff time.Duration
	WriteTimeout   time.Duration
	RedriveEvery   time.Duration
}

// AuditLog records administrative actions. Appends are queued and written by a
// background goroutine so a failing audit table never blocks or fails the action
// that produced the entry. Entries that exhaust their retries are parked and
// re-driven periodically.
type AuditLog struct {
	repo    AuditRepository
	queue   chan *models.GiveawayAudit
	opts    AuditLogOptions
	now     func() time.Time
	newID   func() string
	pending sync.WaitGroup

	// stateMu orders enqueues against the writer exiting; once stopped is set
	// nothing is added to the queue again.
	stateMu sync.Mutex
	stopped bool

	mu     sync.Mutex
	parked []*models.GiveawayAudit
}

// NewAuditLog creates an audit log writing through repo
func NewAuditLog(repo AuditRepository, opts AuditLogOptions) *AuditLog {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 100 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.RedriveEvery <= 0 {
		opts.RedriveEvery = time.Minute
	}

	return &AuditLog{
		repo:  repo,
		queue: make(chan *models.GiveawayAudit, opts.QueueSize),
		opts:  opts,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Append queues an audit entry and never returns an error. Once the writer has
// stopped the entry is written inline instead, parking it if that fails.
func (a *AuditLog) Append(ctx context.Context, giveawayID *int64, action models.AuditAction, actorID string, targetID *string, note string) {
	entry := &models.GiveawayAudit{
		ID:         a.newID(),
		GiveawayID: giveawayID,
		Action:     action,
		ActorID:    actorID,
		TargetID:   targetID,
		Note:       note,
		CreatedAt:  a.now().UTC(),
	}

	a.pending.Add(1)

	a.stateMu.Lock()
	if a.stopped {
		a.stateMu.Unlock()
		a.write(entry)
		return
	}
	select {
	case a.queue <- entry:
		a.stateMu.Unlock()
		metrics.SetAuditQueueDepth(len(a.queue))
	default:
		a.stateMu.Unlock()
		// queue full: write on a side goroutine rather than block the caller
		metrics.RecordAuditWrite("overflow")
		go a.write(entry)
	}
}

// Start runs the writer until ctx is cancelled or the returned stop func is called.
// Stop drains everything already queued before returning. Appends made after the
// writer exits are written by the caller.
func (a *AuditLog) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	a.stateMu.Lock()
	a.stopped = false
	a.stateMu.Unlock()

	go func() {
		defer close(done)
		log.Info("Audit writer started")

		ticker := time.NewTicker(a.opts.RedriveEvery)
		defer ticker.Stop()

		for {
			select {
			case entry := <-a.queue:
				metrics.SetAuditQueueDepth(len(a.queue))
				a.write(entry)
			case <-ticker.C:
				a.redrive()
			case <-stopChan:
				a.shutdown()
				log.Info("Audit writer stopped")
				return
			case <-ctx.Done():
				a.shutdown()
				log.Info("Audit writer stopped (context cancelled)")
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
		<-done
		a.pending.Wait()
	}
}

// shutdown closes the queue to new entries and writes whatever is left in it
func (a *AuditLog) shutdown() {
	a.stateMu.Lock()
	a.stopped = true
	a.stateMu.Unlock()
	a.drain()
}

func (a *AuditLog) drain() {
	for {
		select {
		case entry := <-a.queue:
			a.write(entry)
		default:
			metrics.SetAuditQueueDepth(0)
			return
		}
	}
}

// write persists one entry with bounded exponential backoff, parking it on failure
func (a *AuditLog) write(entry *models.GiveawayAudit) {
	defer a.pending.Done()

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = a.opts.InitialBackoff
	expBackoff.MaxElapsedTime = 0

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), a.opts.WriteTimeout)
		defer cancel()
		return a.repo.Append(ctx, entry)
	}, backoff.WithMaxRetries(expBackoff, uint64(a.opts.MaxAttempts-1)), func(err error, wait time.Duration) {
		metrics.RecordAuditWrite("retry")
		log.WithFields(log.Fields{
			"auditID": entry.ID,
			"action":  entry.Action,
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("Audit write failed, retrying")
	})

	if err == nil {
		metrics.RecordAuditWrite("ok")
		return
	}

	metrics.RecordAuditWrite("parked")
	log.WithFields(log.Fields{
		"auditID":    entry.ID,
		"giveawayID": entry.GiveawayID,
		"action":     entry.Action,
		"actorID":    entry.ActorID,
		"targetID":   entry.TargetID,
		"note":       entry.Note,
		"attempts":   attempt,
	}).WithError(err).Error("Audit write abandoned; parked for redrive")

	a.mu.Lock()
	a.parked = append(a.parked, entry)
	a.mu.Unlock()
}

// redrive re-queues parked entries. IDs are stable, so a write that actually
// landed before timing out is not duplicated.
func (a *AuditLog) redrive() {
	a.mu.Lock()
	parked := a.parked
	a.parked = nil
	a.mu.Unlock()

	if len(parked) == 0 {
		return
	}

	log.WithField("count", len(parked)).Info("Redriving parked audit entries")
	for _, entry := range parked {
		a.pending.Add(1)
		a.write(entry)
	}
}

// Parked returns a copy of entries waiting for redrive
func (a *AuditLog) Parked() []*models.GiveawayAudit {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*models.GiveawayAudit, len(a.parked))
	copy(out, a.parked)
	return out
}

// List returns one page of audit entries
func (a *AuditLog) List(ctx context.Context, filter models.AuditFilter) (*models.AuditPage, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, fmt.Errorf("invalid date range: to is before from")
	}

	entries, total, err := a.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}

	return &models.AuditPage{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

var auditCSVHeader = []string{"id", "giveaway_id", "action", "actor_id", "target_id", "note", "created_at"}

// ExportCSV writes every entry matching filter as CSV and returns the row count.
// Limit and Offset on filter are ignored.
func (a *AuditLog) ExportCSV(ctx context.Context, w io.Writer, filter models.AuditFilter) (int, error) {
	const pageSize = 500

	writer := csv.NewWriter(w)
	if err := writer.Write(auditCSVHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}

	written := 0
	filter.Limit = pageSize
	for filter.Offset = 0; ; filter.Offset += pageSize {
		entries, _, err := a.repo.List(ctx, filter)
		if err != nil {
			return written, fmt.Errorf("failed to read audit page at offset %d: %w", filter.Offset, err)
		}

		for _, e := range entries {
			if err := writer.Write(auditRecord(e)); err != nil {
				return written, fmt.Errorf("failed to write csv row: %w", err)
			}
			written++
		}

		if len(entries) < pageSize {
			break
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return written, fmt.Errorf("failed to flush csv: %w", err)
	}
	return written, nil
}

func auditRecord(e *models.GiveawayAudit) []string {
	giveawayID := ""
	if e.GiveawayID != nil {
		giveawayID = strconv.FormatInt(*e.GiveawayID, 10)
	}
	targetID := ""
	if e.TargetID != nil {
		targetID = *e.TargetID
	}
	return []string{
		e.ID,
		giveawayID,
		string(e.Action),
		e.ActorID,
		targetID,
		e.Note,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
