package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Meme struct {
	bun.BaseModel `bun:"table:meme"`
	ID            string    `bun:"id,pk" json:"id"`
	CreatorID     string    `bun:"creator_id" json:"creator_id"`
	Caption       string    `bun:"caption" json:"caption"`
	ImageURL      string    `bun:"image_url" json:"image_url"`
	TagIDs        []int64   `bun:"tag_ids,array" json:"tag_ids"`
	VoteCount     int       `bun:"vote_count" json:"vote_count"`
	IsVotingClose bool      `bun:"is_voting_close" json:"is_voting_close"`
	InPercentile  bool      `bun:"in_percentile" json:"in_percentile"`
	IsClaimed     bool      `bun:"is_claimed" json:"is_claimed"`
	IsOnchain     bool      `bun:"is_onchain" json:"is_onchain"`
	CreatedAt     time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at" json:"updated_at"`
}
