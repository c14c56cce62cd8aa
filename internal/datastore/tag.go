package datastore

import (
	"context"
	"fmt"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableTag(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Tag)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateTable().Model((*models.TagPair)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.TagPair)(nil)).Index("index_tag_pair_key").IfNotExists().Unique().Column("tag_a", "tag_b").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// IncrementTagCounter bumps one event counter and recomputes the stored
// relevance score in the same statement.
func IncrementTagCounter(ctx context.Context, db *bun.DB, tagID int64, column string) error {
	switch column {
	case "votes", "shares", "uploads", "searches", "bookmarks":
	default:
		return fmt.Errorf("unknown tag counter: %s", column)
	}

	_, err := db.NewUpdate().
		Model((*models.Tag)(nil)).
		Set(fmt.Sprintf("%s = %s + 1", column, column)).
		Set("relevance = 2*votes + 3*shares + uploads + searches + 3*bookmarks").
		Where("id = ?", tagID).
		Exec(ctx)
	return err
}

func IncrementTagPair(ctx context.Context, db *bun.DB, tagA, tagB int64) error {
	pair := &models.TagPair{TagA: tagA, TagB: tagB, Count: 1}
	_, err := db.NewInsert().Model(pair).
		On("CONFLICT (tag_a, tag_b) DO UPDATE").
		Set("count = tag_pair.count + 1").
		Exec(ctx)
	return err
}

func GetTagByID(ctx context.Context, db *bun.DB, tagID int64) (*models.Tag, error) {
	var tag models.Tag
	err := db.NewSelect().Model(&tag).Where("id = ?", tagID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &tag, nil
}

func GetTopTagsByRelevance(ctx context.Context, db *bun.DB, limit int) ([]models.Tag, error) {
	var tags []models.Tag
	err := db.NewSelect().Model(&tags).Order("relevance DESC").Limit(limit).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return tags, nil
}
