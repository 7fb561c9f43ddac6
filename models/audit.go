package models

import (
	"time"
)

// AuditAction names an administrative action
type AuditAction string

const (
	AuditActionDraftWinner     AuditAction = "draft_winner"
	AuditActionApproveWinner   AuditAction = "approve_winner"
	AuditActionRejectWinner    AuditAction = "reject_winner"
	AuditActionCloseGiveaway   AuditAction = "close_giveaway"
	AuditActionStartReview     AuditAction = "start_review"
	AuditActionAdminAdjustment AuditAction = "admin_adjustment"
	AuditActionSetRole         AuditAction = "set_role"
)

// GiveawayAudit is an append-only record of an administrative action.
// GiveawayID is nil for actions not scoped to a giveaway.
type GiveawayAudit struct {
	ID         string      `db:"id" json:"id"`
	GiveawayID *int64      `db:"giveaway_id" json:"giveaway_id,omitempty"`
	Action     AuditAction `db:"action" json:"action"`
	ActorID    string      `db:"actor_id" json:"actor_id"`
	TargetID   *string     `db:"target_id" json:"target_id,omitempty"`
	Note       string      `db:"note" json:"note"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
}

// AuditFilter narrows an audit query. Zero values are ignored.
type AuditFilter struct {
	GiveawayID *int64
	UserID     string // matches actor or target
	Action     AuditAction
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// AuditPage is one page of audit rows
type AuditPage struct {
	Entries []*GiveawayAudit `json:"entries"`
	Total   int64            `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}
