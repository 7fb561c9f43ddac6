package metrics

import (
	"context"
	"testing"
	"time"

	"giveaway/events"
	"giveaway/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAuditWrite(t *testing.T) {
	before := testutil.ToFloat64(auditWrites.WithLabelValues("abandoned"))
	RecordAuditWrite("abandoned")
	assert.Equal(t, before+1, testutil.ToFloat64(auditWrites.WithLabelValues("abandoned")))
}

func TestAttach_CountsCommittedEvents(t *testing.T) {
	bus := events.NewBus()
	Attach(bus)

	counter := ledgerEntries.WithLabelValues(string(models.LedgerReasonPayout), string(models.LedgerTypeFiat))
	before := testutil.ToFloat64(counter)

	bus.Emit(context.Background(), events.BalanceChangedEvent{
		UserID:     "u",
		LedgerType: models.LedgerTypeFiat,
		Reason:     models.LedgerReasonPayout,
	})

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(counter) == before+1
	}, time.Second, 10*time.Millisecond)
}
