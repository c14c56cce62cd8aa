package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"

	"memedrop/internal/datastore"
	"memedrop/internal/models"
	"memedrop/internal/services"
)

func init() {
	// for development
	//nolint:errcheck
	godotenv.Load("../../.env")

	// for production
	//nolint:errcheck
	godotenv.Load("./.env")
}

func main() {
	app := &cli.App{
		Name: "migrate",
		Commands: []*cli.Command{
			commandMigration(),
			commandConfigMigration(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandMigration() *cli.Command {
	return &cli.Command{
		Name: "migrate",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableUser(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableMeme(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableVote(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableMilestone(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableReferral(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableMintLog(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableUserCredit(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableTag(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			err = datastore.CreateTableConfig(ctx, db)
			if err != nil {
				log.Fatal(err)
			}

			log.Println("migration done")
			return nil
		},
	}
}

func commandConfigMigration() *cli.Command {
	return &cli.Command{
		Name:        "migrate-config",
		Description: "Insert default configs to db",
		Action: func(c *cli.Context) error {
			ctx := context.Background()
			db, err := getDb()
			if err != nil {
				log.Fatal(err)
			}

			configs := []models.Config{
				{Key: services.CONFIG_REF_CODE_MAX_ATTEMPTS, Value: strconv.Itoa(services.REF_CODE_DEFAULT_MAX_ATTEMPTS)},
				{Key: services.CONFIG_CREDIT_PER_VOTE, Value: strconv.Itoa(services.CREDIT_PER_VOTE_DEFAULT)},
				{Key: services.CONFIG_CREDIT_PER_UPLOAD, Value: strconv.Itoa(services.CREDIT_PER_UPLOAD_DEFAULT)},
				{Key: services.CONFIG_TOKEN_DECIMALS, Value: "18"},
				{Key: services.CONFIG_REF_LEADERBOARD_LIMIT, Value: strconv.Itoa(services.REFERRAL_LEADERBOARD_DEFAULT_LIMIT)},
				{Key: services.CONFIG_CRONJOB_TIME_SETTLEMENT, Value: "@every 10m"},
			}

			for _, config := range configs {
				err = datastore.InsertConfig(ctx, db, config)
				if err != nil {
					log.Println(config.Key, err)
				}
			}

			log.Println("config migration done")
			return nil
		},
	}
}

func getDb() (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(os.Getenv("DB_DSN")),
		pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
	))

	db := bun.NewDB(sqldb, pgdialect.New())
	return db, nil
}
