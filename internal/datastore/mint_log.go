package datastore

import (
	"context"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableMintLog(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.MintLog)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.MintLog)(nil)).Index("index_mint_log_recipient").IfNotExists().Column("recipient").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.MintLog)(nil)).Index("index_mint_log_status").IfNotExists().Column("status").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertMintLog(ctx context.Context, db *bun.DB, entry *models.MintLog) (*models.MintLog, error) {
	_, err := db.NewInsert().Model(entry).Exec(ctx)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// ResolveMintLog moves a pending entry to its terminal status. The pending
// guard keeps terminal rows immutable apart from recording the hash.
func ResolveMintLog(ctx context.Context, db *bun.DB, entryID int64, status string, txHash *string, detail string) error {
	q := db.NewUpdate().
		Model((*models.MintLog)(nil)).
		Set("status = ?", status).
		Set("detail = ?", detail).
		Where("id = ?", entryID).
		Where("status = ?", models.MintStatusPending)

	if txHash != nil {
		q = q.Set("tx_hash = ?", *txHash)
	}

	_, err := q.Exec(ctx)
	return err
}

func GetMintLogsByStatus(ctx context.Context, db *bun.DB, status string, limit int) ([]models.MintLog, error) {
	var entries []models.MintLog
	err := db.NewSelect().Model(&entries).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
