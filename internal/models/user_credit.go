package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserCredit is one off-chain credit entry. The (user_id, action) unique
// index makes re-crediting the same activity a no-op.
type UserCredit struct {
	bun.BaseModel `bun:"table:user_credit"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	Points        int       `bun:"points" json:"points"`
	Action        string    `bun:"action" json:"action"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

type TotalCredit struct {
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
}
