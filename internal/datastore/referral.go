package datastore

import (
	"context"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableReferral(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Referral)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Referral)(nil)).Index("index_referral_refer_to").IfNotExists().Unique().Column("refer_to").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Referral)(nil)).Index("index_referral_refer_by").IfNotExists().Column("refer_by").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// InsertReferral creates the edge exactly once per referee; a relink is a
// conflict on refer_to and is reported as 0 rows, not an error.
func InsertReferral(ctx context.Context, db *bun.DB, referral *models.Referral) (int64, error) {
	res, err := db.NewInsert().Model(referral).
		On("CONFLICT (refer_to) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func ReferralExistsForReferee(ctx context.Context, db *bun.DB, refereeCode string) (bool, error) {
	return db.NewSelect().Model((*models.Referral)(nil)).
		Where("refer_to = ?", refereeCode).
		Exists(ctx)
}

func CountReferralsByCode(ctx context.Context, db *bun.DB, referrerCode string) (int, error) {
	count, err := db.NewSelect().Model((*models.Referral)(nil)).
		Where("refer_by = ?", referrerCode).
		Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func CountUnclaimedReferralsByCode(ctx context.Context, db *bun.DB, referrerCode string) (int, error) {
	count, err := db.NewSelect().Model((*models.Referral)(nil)).
		Where("refer_by = ?", referrerCode).
		Where("is_claimed = ?", false).
		Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func ClaimAllReferrals(ctx context.Context, db *bun.DB, referrerCode string) (int64, error) {
	res, err := db.NewUpdate().
		Model((*models.Referral)(nil)).
		Set("is_claimed = ?", true).
		Where("refer_by = ?", referrerCode).
		Where("is_claimed = ?", false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
