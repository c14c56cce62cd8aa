package models

import (
	"time"

	"github.com/uptrace/bun"
)

// MintLog status/reason values are part of the external reconciliation
// contract; renaming them requires a migration.
const (
	MintStatusPending = "pending"
	MintStatusSuccess = "success"
	MintStatusFailed  = "failed"

	MintReasonVoteReward      = "vote_reward"
	MintReasonUploadReward    = "upload_reward"
	MintReasonMilestoneReward = "milestone_reward"
	MintReasonVoteReceived    = "vote_received"
	MintReasonReferralReward  = "referral_reward"
	MintReasonOther           = "other"
)

// MintLog is the append-only audit trail of every attempted on-chain
// transaction. It is never authoritative for "did this mint happen"
// without cross-checking the chain receipt.
type MintLog struct {
	bun.BaseModel `bun:"table:mint_log"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Recipient     string    `bun:"recipient" json:"recipient"`
	Amount        int       `bun:"amount" json:"amount"`
	ChainAmount   string    `bun:"chain_amount" json:"chain_amount"`
	TxHash        *string   `bun:"tx_hash" json:"tx_hash"`
	Status        string    `bun:"status" json:"status"`
	Reason        string    `bun:"reason" json:"reason"`
	Detail        string    `bun:"detail" json:"detail"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
