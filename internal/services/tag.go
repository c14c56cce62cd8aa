package services

import (
	"context"
	"fmt"

	"github.com/samber/do"
	"github.com/uptrace/bun"

	"memedrop/internal/datastore"
	"memedrop/internal/models"
)

const (
	TagEventVote     = "votes"
	TagEventShare    = "shares"
	TagEventUpload   = "uploads"
	TagEventSearch   = "searches"
	TagEventBookmark = "bookmarks"
)

type ServiceTag struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
}

func NewServiceTag(container *do.Injector) (*ServiceTag, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	return &ServiceTag{container, postgresDB, readonlyPostgresDB}, nil
}

// RelevanceScore mirrors the stored-column formula. Kept exported so callers
// can rank in-memory tags the same way the database does.
func RelevanceScore(tag *models.Tag) int {
	return 2*tag.Votes + 3*tag.Shares + tag.Uploads + tag.Searches + 3*tag.Bookmarks
}

// NormalizePair orders a tag pair so (a, b) and (b, a) hit the same row.
func NormalizePair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}

// OnTagEvent bumps each tag's counter for the event and, for multi-tag
// events, the co-occurrence count of every unordered pair.
func (service *ServiceTag) OnTagEvent(ctx context.Context, tagIDs []int64, eventType string) error {
	seen := map[int64]bool{}
	unique := make([]int64, 0, len(tagIDs))
	for _, id := range tagIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	for _, id := range unique {
		err := datastore.IncrementTagCounter(ctx, service.postgresDB, id, eventType)
		if err != nil {
			return fmt.Errorf("tag %d: %w", id, err)
		}
	}

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a, b := NormalizePair(unique[i], unique[j])
			err := datastore.IncrementTagPair(ctx, service.postgresDB, a, b)
			if err != nil {
				return fmt.Errorf("tag pair (%d, %d): %w", a, b, err)
			}
		}
	}

	return nil
}

func (service *ServiceTag) TopTags(ctx context.Context, limit int) ([]models.Tag, error) {
	if limit <= 0 {
		limit = 10
	}

	return datastore.GetTopTagsByRelevance(ctx, service.readonlyPostgresDB, limit)
}
