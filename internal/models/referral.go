package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Referral is the referrer code -> referee code edge. A user can be
// referred at most once, so refer_to carries a unique index.
type Referral struct {
	bun.BaseModel `bun:"table:referral"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ReferBy       string    `bun:"refer_by" json:"refer_by"`
	ReferTo       string    `bun:"refer_to" json:"refer_to"`
	IsClaimed     bool      `bun:"is_claimed" json:"is_claimed"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
