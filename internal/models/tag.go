package models

import (
	"github.com/uptrace/bun"
)

type Tag struct {
	bun.BaseModel `bun:"table:tag"`
	ID            int64  `bun:"id,pk,autoincrement" json:"id"`
	Name          string `bun:"name" json:"name"`
	Votes         int    `bun:"votes" json:"votes"`
	Shares        int    `bun:"shares" json:"shares"`
	Uploads       int    `bun:"uploads" json:"uploads"`
	Searches      int    `bun:"searches" json:"searches"`
	Bookmarks     int    `bun:"bookmarks" json:"bookmarks"`
	Relevance     int    `bun:"relevance" json:"relevance"`
}

// TagPair counts co-occurrence of two tags on the same meme.
// Pairs are normalized so that tag_a < tag_b.
type TagPair struct {
	bun.BaseModel `bun:"table:tag_pair"`
	ID            int64 `bun:"id,pk,autoincrement" json:"id"`
	TagA          int64 `bun:"tag_a" json:"tag_a"`
	TagB          int64 `bun:"tag_b" json:"tag_b"`
	Count         int   `bun:"count" json:"count"`
}
