package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Vote is created on cast and mutated only by settlement, never deleted.
type Vote struct {
	bun.BaseModel `bun:"table:vote"`
	ID            string    `bun:"id,pk" json:"id"`
	UserID        string    `bun:"user_id" json:"user_id"`
	MemeID        string    `bun:"meme_id" json:"meme_id"`
	IsClaimed     bool      `bun:"is_claimed" json:"is_claimed"`
	IsOnchain     bool      `bun:"is_onchain" json:"is_onchain"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
