package datastore

import (
	"context"

	"memedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableUserCredit(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.UserCredit)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserCredit)(nil)).Index("index_user_credit_user_id_action").IfNotExists().Unique().Column("user_id", "action").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.UserCredit)(nil)).Index("index_user_credit_user_id").IfNotExists().Column("user_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertUserCredit(ctx context.Context, db *bun.DB, credit *models.UserCredit) error {
	_, err := db.NewInsert().Model(credit).On("CONFLICT (user_id, action) DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetUserTotalCredit(ctx context.Context, db *bun.DB, userID string) (int, error) {
	var total models.TotalCredit
	err := db.NewSelect().
		ColumnExpr("SUM(points) as total_points").
		ColumnExpr("user_id").
		TableExpr("user_credit").
		Where("user_id = ?", userID).
		GroupExpr("user_id").
		Scan(ctx, &total)
	if err != nil {
		return 0, err
	}

	return total.TotalPoints, nil
}
