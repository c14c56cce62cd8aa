package datastore

import (
	"context"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableMeme(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Meme)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Meme)(nil)).Index("index_meme_creator_id").IfNotExists().Column("creator_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Meme)(nil)).Index("index_meme_is_onchain").IfNotExists().Column("is_onchain").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertMeme(ctx context.Context, db *bun.DB, meme *models.Meme) (*models.Meme, error) {
	_, err := db.NewInsert().Model(meme).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return meme, nil
}

func FindMemeByID(ctx context.Context, db *bun.DB, memeID string) (*models.Meme, error) {
	var meme models.Meme
	err := db.NewSelect().Model(&meme).Where("id = ?", memeID).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &meme, nil
}

func IncrementMemeVoteCount(ctx context.Context, db *bun.DB, memeID string) error {
	_, err := db.NewUpdate().
		Model((*models.Meme)(nil)).
		Set("vote_count = vote_count + 1").
		Where("id = ?", memeID).
		Exec(ctx)
	return err
}

func CountMemesByCreator(ctx context.Context, db *bun.DB, creatorID string) (int, error) {
	count, err := db.NewSelect().Model((*models.Meme)(nil)).Where("creator_id = ?", creatorID).Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountPercentileMemesByCreator counts the creator's memes that the ranking
// collaborator marked in_percentile. It drives the upload-total milestones.
func CountPercentileMemesByCreator(ctx context.Context, db *bun.DB, creatorID string) (int, error) {
	count, err := db.NewSelect().Model((*models.Meme)(nil)).
		Where("creator_id = ?", creatorID).
		Where("in_percentile = ?", true).
		Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}
