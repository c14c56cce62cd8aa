package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MilestoneTypeVote        = "vote"
	MilestoneTypeVoteTotal   = "vote-total"
	MilestoneTypeReferral    = "referral"
	MilestoneTypeUpload      = "upload"
	MilestoneTypeUploadTotal = "upload-total"
)

// Milestone is a claim record keyed by (created_by, type, milestone).
// At most one row exists per key; once claimed it is immutable.
type Milestone struct {
	bun.BaseModel `bun:"table:milestone"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	CreatedBy     string    `bun:"created_by" json:"created_by"`
	Type          string    `bun:"type" json:"type"`
	Milestone     int       `bun:"milestone" json:"milestone"`
	Reward        int       `bun:"reward" json:"reward"`
	IsClaimed     bool      `bun:"is_claimed" json:"is_claimed"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}
