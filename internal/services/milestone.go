package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"memedrop/internal/datastore"
	"memedrop/internal/models"
	"memedrop/internal/pkg/caching"
)

// milestoneStore is the slice of the ledger the claim path touches.
type milestoneStore interface {
	GetUnclaimedMilestone(ctx context.Context, userID string, milestoneType string, threshold int) (*models.Milestone, error)
	ClaimMilestone(ctx context.Context, milestoneID int64) (int64, error)
	UnclaimMilestone(ctx context.Context, milestoneID int64) (int64, error)
}

type walletFinder interface {
	FindUserByIDNoCache(ctx context.Context, userID string) (*models.User, error)
}

type rewardMinter interface {
	MintMilestoneReward(ctx context.Context, recipient string, amount int) (string, error)
}

type claimLock interface {
	TryLock() error
	Unlock() (bool, error)
}

type bunMilestoneStore struct {
	db *bun.DB
}

func (store bunMilestoneStore) GetUnclaimedMilestone(ctx context.Context, userID string, milestoneType string, threshold int) (*models.Milestone, error) {
	return datastore.GetUnclaimedMilestone(ctx, store.db, userID, milestoneType, threshold)
}

func (store bunMilestoneStore) ClaimMilestone(ctx context.Context, milestoneID int64) (int64, error) {
	return datastore.ClaimMilestone(ctx, store.db, milestoneID)
}

func (store bunMilestoneStore) UnclaimMilestone(ctx context.Context, milestoneID int64) (int64, error) {
	return datastore.UnclaimMilestone(ctx, store.db, milestoneID)
}

type ServiceMilestone struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	store    milestoneStore
	users    walletFinder
	minter   rewardMinter
	newMutex func(name string) claimLock
}

type ClaimResult struct {
	Minted bool   `json:"minted"`
	Amount int    `json:"amount"`
	TxHash string `json:"tx_hash"`
}

func NewServiceMilestone(container *do.Injector) (*ServiceMilestone, error) {
	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
	if err != nil {
		return nil, err
	}

	cache, err := do.Invoke[caching.Cache](container)
	if err != nil {
		return nil, err
	}

	readonlyCache, err := do.Invoke[caching.ReadOnlyCache](container)
	if err != nil {
		return nil, err
	}

	serviceUser, err := do.Invoke[*ServiceUser](container)
	if err != nil {
		return nil, err
	}

	serviceSettlement, err := do.Invoke[*ServiceSettlement](container)
	if err != nil {
		return nil, err
	}

	return &ServiceMilestone{
		container:          container,
		postgresDB:         postgresDB,
		readonlyPostgresDB: readonlyPostgresDB,
		cache:              cache,
		readonlyCache:      readonlyCache,
		store:              bunMilestoneStore{postgresDB},
		users:              serviceUser,
		minter:             serviceSettlement,
		newMutex: func(name string) claimLock {
			return rs.NewMutex(name, redsync.WithExpiry(CLAIM_LOCK_TTL))
		},
	}, nil
}

// ThresholdsFor returns the configured reward thresholds for an activity type.
func ThresholdsFor(milestoneType string) []int {
	return milestoneThresholds[milestoneType]
}

// RewardFor returns the reward amount paid at a threshold, or 0 when the
// (type, threshold) pair is not part of the schedule.
func RewardFor(milestoneType string, threshold int) int {
	thresholds := milestoneThresholds[milestoneType]
	rewards := milestoneRewards[milestoneType]
	for i, t := range thresholds {
		if t == threshold && i < len(rewards) {
			return rewards[i]
		}
	}

	return 0
}

// CrossedThresholds returns every configured threshold <= counter that is
// not in existing, in ascending order.
func CrossedThresholds(thresholds []int, counter int, existing []int) []int {
	seen := make(map[int]bool, len(existing))
	for _, t := range existing {
		seen[t] = true
	}

	var crossed []int
	for _, t := range thresholds {
		if t <= counter && !seen[t] {
			crossed = append(crossed, t)
		}
	}

	return crossed
}

// EvaluateMilestones records one unclaimed milestone per newly crossed
// threshold. Concurrent evaluations for the same user are de-duplicated by
// the (created_by, type, milestone) unique index; losing the insert race is
// treated as already evaluated.
func (service *ServiceMilestone) EvaluateMilestones(ctx context.Context, userID string, milestoneType string, counter int) ([]models.Milestone, error) {
	thresholds := ThresholdsFor(milestoneType)
	if len(thresholds) == 0 {
		return nil, errorx.Wrap(fmt.Errorf("unknown milestone type: %s", milestoneType), errorx.Invalid)
	}

	existing, err := datastore.GetExistingThresholds(ctx, service.postgresDB, userID, milestoneType)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	var created []models.Milestone
	for _, threshold := range CrossedThresholds(thresholds, counter, existing) {
		milestone := models.Milestone{
			CreatedBy: userID,
			Type:      milestoneType,
			Milestone: threshold,
			Reward:    RewardFor(milestoneType, threshold),
		}

		inserted, err := datastore.InsertMilestone(ctx, service.postgresDB, &milestone)
		if err != nil {
			if datastore.IsUniqueViolation(err) {
				continue
			}
			return created, err
		}

		if inserted > 0 {
			created = append(created, milestone)
		}
	}

	if len(created) > 0 {
		err = service.cache.Delete(ctx, DBKeyUserMilestones(userID, milestoneType))
		if err != nil {
			log.Println(err)
		}
	}

	return created, nil
}

func (service *ServiceMilestone) GetMilestonesByUserAndType(ctx context.Context, userID string, milestoneType string) ([]models.Milestone, error) {
	callback := func() ([]models.Milestone, error) {
		milestones, err := datastore.GetMilestonesByUserAndType(ctx, service.readonlyPostgresDB, userID, milestoneType)
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return milestones, err
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserMilestones(userID, milestoneType), CACHE_TTL_5_MINS, callback)
}

// Claim mints the reward for one confirmed milestone. The compare-and-set
// claim on the milestone row is the gate: it happens before the mint, so
// only the caller whose flip lands reaches the gateway even if the redsync
// mutex expires mid-claim. A failed mint rolls the flip back, leaving the
// milestone claimable again; the failed attempt stays in MintLog.
func (service *ServiceMilestone) Claim(ctx context.Context, user *models.User, milestoneType string, threshold int) (*ClaimResult, error) {
	mutex := service.newMutex(LockKeyMilestoneClaim(user.ID, milestoneType, threshold))
	if err := mutex.TryLock(); err != nil {
		return nil, errorx.Wrap(ErrMilestoneClaimLock, errorx.Invalid)
	}

	// nolint:errcheck
	defer mutex.Unlock()

	milestone, err := service.store.GetUnclaimedMilestone(ctx, user.ID, milestoneType, threshold)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errorx.Wrap(errors.New("no unclaimed milestone"), errorx.NotExist)
		}
		return nil, err
	}

	if milestone.CreatedBy != user.ID {
		return nil, errorx.Wrap(errors.New("not the milestone owner"), errorx.Authn)
	}

	owner, err := service.users.FindUserByIDNoCache(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if owner.WalletAddress == nil {
		// terminal until a wallet is linked; the milestone stays unclaimed
		return nil, errorx.Wrap(ErrNoWalletLinked, errorx.Invalid)
	}

	won, err := service.store.ClaimMilestone(ctx, milestone.ID)
	if err != nil {
		return nil, err
	}

	if won == 0 {
		return nil, errorx.Wrap(errors.New("milestone already claimed"), errorx.NotExist)
	}

	txHash, err := service.minter.MintMilestoneReward(ctx, *owner.WalletAddress, milestone.Reward)
	if err != nil {
		if _, rollbackErr := service.store.UnclaimMilestone(ctx, milestone.ID); rollbackErr != nil {
			log.Println("claim rollback failed after failed mint:", rollbackErr, "milestone:", milestone.ID)
		}
		return nil, err
	}

	err = service.cache.Delete(ctx, DBKeyUserMilestones(user.ID, milestoneType))
	if err != nil {
		log.Println(err)
	}

	return &ClaimResult{
		Minted: true,
		Amount: milestone.Reward,
		TxHash: txHash,
	}, nil
}
