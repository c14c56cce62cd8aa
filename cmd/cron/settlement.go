package main

import (
	"context"
	"log"
	"time"

	"memedrop/internal/datastore"
	"memedrop/internal/services"

	"github.com/robfig/cron/v3"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

const defaultSettlementCron = "@every 10m"

type SettlementJob struct {
	container *do.Injector
}

func NewSettlementJob(container *do.Injector) *SettlementJob {
	return &SettlementJob{container: container}
}

func (j *SettlementJob) Start(cronRunner *cron.Cron) {
	schedule := defaultSettlementCron

	db, err := do.Invoke[*bun.DB](j.container)
	if err != nil {
		log.Println(err)
		return
	}

	timeline, err := datastore.GetConfigByKey(context.Background(), db, services.CONFIG_CRONJOB_TIME_SETTLEMENT)
	if err == nil && timeline != nil && timeline.Value != "" {
		schedule = timeline.Value
	}

	_, err = cronRunner.AddFunc(schedule, j.runScheduledTask)
	log.Println("Settlement cronjob start at:", time.Now().Format("2006-01-02 15:04:05"), "cron:", schedule, err)
}

func (j *SettlementJob) runScheduledTask() {
	ctx := context.Background()
	log.Println("Start settling votes ...")

	serviceSettlement, err := do.Invoke[*services.ServiceSettlement](j.container)
	if err != nil {
		log.Println(err)
		return
	}

	batch, err := serviceSettlement.SettleVotes(ctx)
	if err != nil {
		log.Println("settle votes:", err)
		return
	}

	log.Println("Votes settled:", len(batch.VoteIDs))
}
