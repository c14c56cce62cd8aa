package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:user"`
	ID            string    `bun:"id,pk" json:"id"`
	Username      string    `bun:"username" json:"username"`
	WalletAddress *string   `bun:"wallet_address" json:"wallet_address"`
	RefCode       *string   `bun:"ref_code" json:"ref_code"`
	ReferredBy    *string   `bun:"referred_by" json:"referred_by"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`

	IsNewUser   bool `bun:"-" json:"is_new_user"`
	TotalCredit int  `bun:"-" json:"total_credit"`
}

// UserFromAuth only use in middleware
type UserFromAuth struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
