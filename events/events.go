package events

import (
	"context"
	"sync"

	"giveaway/models"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChanged        EventType = "balance_changed"
	EventTypeContributionRecorded  EventType = "contribution_recorded"
	EventTypeGiveawayStatusChanged EventType = "giveaway_status_changed"
	EventTypeWinnerDrafted         EventType = "winner_drafted"
	EventTypeWinnerFinalized       EventType = "winner_finalized"
)

// AllEventTypes lists every event type the bus carries
var AllEventTypes = []EventType{
	EventTypeBalanceChanged,
	EventTypeContributionRecorded,
	EventTypeGiveawayStatusChanged,
	EventTypeWinnerDrafted,
	EventTypeWinnerFinalized,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangedEvent is emitted for every committed ledger entry
type BalanceChangedEvent struct {
	UserID       string              `json:"user_id"`
	LedgerType   models.LedgerType   `json:"ledger_type"`
	Reason       models.LedgerReason `json:"reason"`
	ReferenceID  string              `json:"reference_id"`
	Amount       decimal.Decimal     `json:"amount"`
	BalanceAfter decimal.Decimal     `json:"balance_after"`
}

func (e BalanceChangedEvent) Type() EventType {
	return EventTypeBalanceChanged
}

// ContributionRecordedEvent is emitted for a donation or ticket purchase
type ContributionRecordedEvent struct {
	ContributionID string                  `json:"contribution_id"`
	GiveawayID     int64                   `json:"giveaway_id"`
	UserID         string                  `json:"user_id"`
	Kind           models.ContributionKind `json:"kind"`
	Amount         decimal.Decimal         `json:"amount"`
	IssuedTickets  int64                   `json:"issued_tickets"`
	Breakdown      models.SplitBreakdown   `json:"breakdown"`
}

func (e ContributionRecordedEvent) Type() EventType {
	return EventTypeContributionRecorded
}

// GiveawayStatusChangedEvent is emitted on every status transition
type GiveawayStatusChangedEvent struct {
	GiveawayID int64                 `json:"giveaway_id"`
	OldStatus  models.GiveawayStatus `json:"old_status"`
	NewStatus  models.GiveawayStatus `json:"new_status"`
	ActorID    string                `json:"actor_id"`
}

func (e GiveawayStatusChangedEvent) Type() EventType {
	return EventTypeGiveawayStatusChanged
}

// WinnerDraftedEvent is emitted when a candidate winner is drawn
type WinnerDraftedEvent struct {
	GiveawayID        int64   `json:"giveaway_id"`
	CandidateID       string  `json:"candidate_id"`
	PreviousCandidate *string `json:"previous_candidate,omitempty"`
	ActorID           string  `json:"actor_id"`
}

func (e WinnerDraftedEvent) Type() EventType {
	return EventTypeWinnerDrafted
}

// WinnerFinalizedEvent is emitted once a winner is paid out
type WinnerFinalizedEvent struct {
	GiveawayID   int64           `json:"giveaway_id"`
	Title        string          `json:"title"`
	WinnerID     string          `json:"winner_id"`
	Payout       decimal.Decimal `json:"payout"`
	TicketsCount int64           `json:"tickets_count"`
	ActorID      string          `json:"actor_id"`
}

func (e WinnerFinalizedEvent) Type() EventType {
	return EventTypeWinnerFinalized
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers.
// Handlers run asynchronously and a panicking handler is logged, not propagated.
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event")

	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus holds events raised inside a unit of work until it commits
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the events queued so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits pending events to the underlying bus. Call only after commit.
func (b *TransactionalBus) Flush() {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing transactional bus")

	// handlers outlive the request that committed the transaction
	eventCtx := context.Background()
	if b.real != nil {
		for _, ev := range b.pending {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
