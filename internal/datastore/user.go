package datastore

import (
	"context"
	"strings"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUser(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.User)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_ref_code").IfNotExists().Unique().Column("ref_code").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_wallet_address").IfNotExists().Unique().Column("wallet_address").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.User)(nil)).Index("index_user_referred_by").IfNotExists().Column("referred_by").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func FindUserByID(ctx context.Context, db *bun.DB, userID string) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("id = ?", userID).Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func FindUserByUsername(ctx context.Context, db *bun.DB, username string) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("username = ?", strings.ToLower(username)).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func CreateUser(ctx context.Context, db *bun.DB, user *models.User) (*models.User, error) {
	_, err := db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func FindUserByRefCode(ctx context.Context, db *bun.DB, refCode string) (*models.User, error) {
	var user models.User
	err := db.NewSelect().Model(&user).Where("ref_code = ?", refCode).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// SetUserRefCode assigns a referral code once. The unique index on ref_code
// surfaces collisions as a duplicate-key error; the caller retries with a
// fresh code.
func SetUserRefCode(ctx context.Context, db *bun.DB, userID string, refCode string) (int64, error) {
	res, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("ref_code = ?", refCode).
		Where("id = ?", userID).
		Where("ref_code is null").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// SetReferredBy is conditional on referred_by being unset; it returns the
// number of rows changed so callers can tell a no-op retry from a first link.
func SetReferredBy(ctx context.Context, db *bun.DB, userID string, referrerCode string) (int64, error) {
	res, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("referred_by = ?", referrerCode).
		Where("id = ?", userID).
		Where("referred_by is null").
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func SetWalletAddress(ctx context.Context, db *bun.DB, userID string, address string) error {
	_, err := db.NewUpdate().
		Model((*models.User)(nil)).
		Set("wallet_address = ?", address).
		Where("id = ?", userID).
		Exec(ctx)
	return err
}

func CountUsers(ctx context.Context, db *bun.DB) (int, error) {
	count, err := db.NewSelect().Model((*models.User)(nil)).Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}
