package datastore

import (
	"context"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableVote(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Vote)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Vote)(nil)).Index("index_vote_user_id_meme_id").IfNotExists().Unique().Column("user_id", "meme_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Vote)(nil)).Index("index_vote_is_onchain").IfNotExists().Column("is_onchain").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertVote(ctx context.Context, db *bun.DB, vote *models.Vote) error {
	_, err := db.NewInsert().Model(vote).Exec(ctx)
	return err
}

func CountVotesByUser(ctx context.Context, db *bun.DB, userID string) (int, error) {
	count, err := db.NewSelect().Model((*models.Vote)(nil)).Where("user_id = ?", userID).Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// CountVotesReceivedByCreator counts votes cast on all memes the creator
// uploaded. It drives the vote-total milestones.
func CountVotesReceivedByCreator(ctx context.Context, db *bun.DB, creatorID string) (int, error) {
	count, err := db.NewSelect().Model((*models.Vote)(nil)).
		Join("JOIN meme AS m ON m.id = vote.meme_id").
		Where("m.creator_id = ?", creatorID).
		Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func GetUnsettledVotes(ctx context.Context, db *bun.DB) ([]*models.Vote, error) {
	var votes []*models.Vote
	err := db.NewSelect().Model(&votes).
		Where("is_onchain = ?", false).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return votes, nil
}

// MarkVotesOnchain flips the settlement flag for the given votes. The
// is_onchain guard keeps a crash-and-retry run from counting a vote twice.
func MarkVotesOnchain(ctx context.Context, db *bun.DB, voteIDs []string) (int64, error) {
	if len(voteIDs) == 0 {
		return 0, nil
	}

	res, err := db.NewUpdate().
		Model((*models.Vote)(nil)).
		Set("is_onchain = ?", true).
		Where("id IN (?)", bun.In(voteIDs)).
		Where("is_onchain = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
