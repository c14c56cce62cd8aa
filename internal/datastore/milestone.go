package datastore

import (
	"context"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableMilestone(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Milestone)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Milestone)(nil)).Index("index_milestone_key").IfNotExists().Unique().Column("created_by", "type", "milestone").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Milestone)(nil)).Index("index_milestone_created_by").IfNotExists().Column("created_by").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertMilestone inserts an unclaimed milestone. A concurrent evaluation
// that already created the row is not an error; the returned count is 0.
func InsertMilestone(ctx context.Context, db *bun.DB, milestone *models.Milestone) (int64, error) {
	res, err := db.NewInsert().Model(milestone).
		On("CONFLICT (created_by, type, milestone) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func GetUnclaimedMilestone(ctx context.Context, db *bun.DB, userID string, milestoneType string, threshold int) (*models.Milestone, error) {
	var milestone models.Milestone
	err := db.NewSelect().Model(&milestone).
		Where("created_by = ?", userID).
		Where("type = ?", milestoneType).
		Where("milestone = ?", threshold).
		Where("is_claimed = ?", false).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &milestone, nil
}

func GetMilestonesByUserAndType(ctx context.Context, db *bun.DB, userID string, milestoneType string) ([]models.Milestone, error) {
	var milestones []models.Milestone
	err := db.NewSelect().Model(&milestones).
		Where("created_by = ?", userID).
		Where("type = ?", milestoneType).
		Order("milestone ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return milestones, nil
}

func GetExistingThresholds(ctx context.Context, db *bun.DB, userID string, milestoneType string) ([]int, error) {
	var thresholds []int
	err := db.NewSelect().Model((*models.Milestone)(nil)).
		Column("milestone").
		Where("created_by = ?", userID).
		Where("type = ?", milestoneType).
		Order("milestone ASC").
		Scan(ctx, &thresholds)
	if err != nil {
		return nil, err
	}

	return thresholds, nil
}

// ClaimMilestone is the linearization point of the claim path: the flip
// only lands on a still-unclaimed row, and the caller learns whether it
// won via the affected-row count. Only the winner may mint.
func ClaimMilestone(ctx context.Context, db *bun.DB, milestoneID int64) (int64, error) {
	res, err := db.NewUpdate().
		Model((*models.Milestone)(nil)).
		Set("is_claimed = ?", true).
		Where("id = ?", milestoneID).
		Where("is_claimed = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// UnclaimMilestone reopens a milestone whose claim could not complete, so
// the owner can retry. The guard keeps a double rollback harmless.
func UnclaimMilestone(ctx context.Context, db *bun.DB, milestoneID int64) (int64, error) {
	res, err := db.NewUpdate().
		Model((*models.Milestone)(nil)).
		Set("is_claimed = ?", false).
		Where("id = ?", milestoneID).
		Where("is_claimed = ?", true).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
