package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"giveaway/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversAfterCommit(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan BalanceChangedEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChanged, func(ctx context.Context, event Event) {
		if e, ok := event.(BalanceChangedEvent); ok {
			received <- e
		}
	})

	sent := BalanceChangedEvent{
		UserID:       "user-1",
		LedgerType:   models.LedgerTypeFiat,
		Reason:       models.LedgerReasonDeposit,
		ReferenceID:  "ext-1",
		Amount:       decimal.NewFromInt(25),
		BalanceAfter: decimal.NewFromInt(25),
	}
	transactionalBus.Publish(sent)
	assert.Len(t, transactionalBus.Pending(), 1)

	transactionalBus.Flush()
	assert.Empty(t, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, sent.UserID, got.UserID)
		assert.True(t, sent.Amount.Equal(got.Amount))
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	called := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeWinnerFinalized, func(ctx context.Context, event Event) {
		called <- struct{}{}
	})

	transactionalBus.Publish(WinnerFinalizedEvent{GiveawayID: 1, WinnerID: "u"})
	transactionalBus.Discard()
	transactionalBus.Flush()

	select {
	case <-called:
		t.Fatal("discarded event must not be delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(2)
	bus.Subscribe(EventTypeWinnerDrafted, func(ctx context.Context, event Event) {
		defer wg.Done()
		panic("boom")
	})
	bus.Subscribe(EventTypeWinnerDrafted, func(ctx context.Context, event Event) {
		defer wg.Done()
	})

	bus.Emit(context.Background(), WinnerDraftedEvent{GiveawayID: 1, CandidateID: "x"})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not complete")
	}
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func TestForwarder_PublishesEnvelope(t *testing.T) {
	publisher := new(mockPublisher)
	forwarder := NewForwarder(publisher)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	forwarder.now = func() time.Time { return fixed }

	event := ContributionRecordedEvent{
		ContributionID: "c-1",
		GiveawayID:     7,
		UserID:         "u-1",
		Kind:           models.ContributionKindDonation,
		Amount:         decimal.RequireFromString("10.00"),
	}

	publisher.On("Publish", mock.Anything, "giveaway.contribution_recorded", mock.MatchedBy(func(data []byte) bool {
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return false
		}
		var payload ContributionRecordedEvent
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return false
		}
		return env.Type == EventTypeContributionRecorded &&
			env.OccurredAt.Equal(fixed) &&
			payload.ContributionID == "c-1" &&
			payload.Amount.Equal(decimal.NewFromInt(10))
	})).Return(nil)

	forwarder.Handle(context.Background(), event)

	publisher.AssertExpectations(t)
}

func TestForwarder_PublishErrorIsSwallowed(t *testing.T) {
	publisher := new(mockPublisher)
	forwarder := NewForwarder(publisher)

	publisher.On("Publish", mock.Anything, Subject(EventTypeGiveawayStatusChanged), mock.Anything).
		Return(errors.New("nats down"))

	require.NotPanics(t, func() {
		forwarder.Handle(context.Background(), GiveawayStatusChangedEvent{GiveawayID: 1})
	})
	publisher.AssertExpectations(t)
}
