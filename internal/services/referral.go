package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"log"
	"math/big"

	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"memedrop/internal/datastore"
	"memedrop/internal/datastore/redis_store"
	"memedrop/internal/models"
	"memedrop/internal/pkg/caching"
)

const RefCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var ErrRefCodeExhausted = errors.New("referral code generation exhausted retry ceiling")

// referralStore is the slice of the ledger the linking path touches.
type referralStore interface {
	SetUserRefCode(ctx context.Context, userID string, code string) (int64, error)
	SetReferredBy(ctx context.Context, userID string, referrerCode string) (int64, error)
	ReferralExistsForReferee(ctx context.Context, refereeCode string) (bool, error)
	InsertReferral(ctx context.Context, referral *models.Referral) (int64, error)
	CountUnclaimedReferralsByCode(ctx context.Context, referrerCode string) (int, error)
	ClaimAllReferrals(ctx context.Context, referrerCode string) (int64, error)
}

type referralUserStore interface {
	FindUserByIDNoCache(ctx context.Context, userID string) (*models.User, error)
	FindUserByRefCode(ctx context.Context, refCode string) (*models.User, error)
	GetUserCredit(ctx context.Context, userID string) (int, error)
	ClearUserCache(ctx context.Context, userID string) error
}

type milestoneEvaluator interface {
	EvaluateMilestones(ctx context.Context, userID string, milestoneType string, counter int) ([]models.Milestone, error)
	GetMilestonesByUserAndType(ctx context.Context, userID string, milestoneType string) ([]models.Milestone, error)
}

type leaderboardWriter interface {
	SetScore(ctx context.Context, name string, userID string, score float64) error
}

type bunReferralStore struct {
	db *bun.DB
}

func (store bunReferralStore) SetUserRefCode(ctx context.Context, userID string, code string) (int64, error) {
	return datastore.SetUserRefCode(ctx, store.db, userID, code)
}

func (store bunReferralStore) SetReferredBy(ctx context.Context, userID string, referrerCode string) (int64, error) {
	return datastore.SetReferredBy(ctx, store.db, userID, referrerCode)
}

func (store bunReferralStore) ReferralExistsForReferee(ctx context.Context, refereeCode string) (bool, error) {
	return datastore.ReferralExistsForReferee(ctx, store.db, refereeCode)
}

func (store bunReferralStore) InsertReferral(ctx context.Context, referral *models.Referral) (int64, error) {
	return datastore.InsertReferral(ctx, store.db, referral)
}

func (store bunReferralStore) CountUnclaimedReferralsByCode(ctx context.Context, referrerCode string) (int, error) {
	return datastore.CountUnclaimedReferralsByCode(ctx, store.db, referrerCode)
}

func (store bunReferralStore) ClaimAllReferrals(ctx context.Context, referrerCode string) (int64, error) {
	return datastore.ClaimAllReferrals(ctx, store.db, referrerCode)
}

type redisLeaderboard struct {
	client redis.UniversalClient
}

func (board redisLeaderboard) SetScore(ctx context.Context, name string, userID string, score float64) error {
	_, err := redis_store.SetLeaderboard(ctx, board.client, name, &models.LeaderboardItem{
		UserID: userID,
		Score:  score,
	})
	return err
}

type ServiceReferral struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	store      referralStore
	users      referralUserStore
	milestones milestoneEvaluator
	board      leaderboardWriter
	config     configReader
	newMutex   func(name string) claimLock
}

type ReferralSummary struct {
	TotalReferralCount int                `json:"totalReferralCount"`
	MilestoneDetails   []models.Milestone `json:"milestoneDetails"`
	Points             int                `json:"points"`
	UnclaimedReferrals int                `json:"unclaimedReferrals"`
}

func NewServiceReferral(container *do.Injector) (*ServiceReferral, error) {
	redisDB, err := do.InvokeNamed[redis.UniversalClient](container, "redis-db")
	if err != nil {
		return nil, err
	}

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

	serviceMilestone, err := do.Invoke[*ServiceMilestone](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceReferral{
		container:          container,
		redisDB:            redisDB,
		readonlyPostgresDB: readonlyPostgresDB,
		cache:              cache,
		readonlyCache:      readonlyCache,
		store:              bunReferralStore{postgresDB},
		users:              serviceUser,
		milestones:         serviceMilestone,
		board:              redisLeaderboard{redisDB},
		config:             serviceConfig,
		newMutex: func(name string) claimLock {
			return rs.NewMutex(name)
		},
	}, nil
}

// GenerateRefCode draws a code uniformly at random from the alphanumeric
// alphabet.
func GenerateRefCode(length int) (string, error) {
	code := make([]byte, length)
	max := big.NewInt(int64(len(RefCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = RefCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// EnsureReferralCode issues the user's code on first eligible activity.
// Collisions with the unique ref_code index are retried with a fresh draw
// up to the configured ceiling.
func (service *ServiceReferral) EnsureReferralCode(ctx context.Context, user *models.User) (string, error) {
	if user == nil {
		return "", errors.New("user is nil")
	}

	if user.RefCode != nil {
		return *user.RefCode, nil
	}

	maxAttempts, _ := service.config.GetIntConfig(ctx, CONFIG_REF_CODE_MAX_ATTEMPTS, REF_CODE_DEFAULT_MAX_ATTEMPTS)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := GenerateRefCode(REF_CODE_LENGTH)
		if err != nil {
			return "", err
		}

		updated, err := service.store.SetUserRefCode(ctx, user.ID, code)
		if err != nil {
			if datastore.IsUniqueViolation(err) {
				continue
			}
			return "", err
		}

		if updated == 0 {
			// a concurrent issuance won; use whatever it assigned
			current, err := service.users.FindUserByIDNoCache(ctx, user.ID)
			if err != nil {
				return "", err
			}
			if current.RefCode == nil {
				continue
			}
			user.RefCode = current.RefCode
			return *current.RefCode, nil
		}

		user.RefCode = &code
		_ = service.users.ClearUserCache(ctx, user.ID)
		return code, nil
	}

	return "", errorx.Wrap(ErrRefCodeExhausted, errorx.Service)
}

// LinkReferral links a referee to the referrer's code exactly once. Relinking
// an already linked referee is a no-op, so the call is safe to retry.
func (service *ServiceReferral) LinkReferral(ctx context.Context, refereeUserID string, referrerCode string) error {
	mutex := service.newMutex(LockKeyLinkReferral(refereeUserID))
	if err := mutex.TryLock(); err != nil {
		// another linking attempt for this referee is in flight; that one wins
		log.Println("skip referral link, lock not acquired:", err, "user:", refereeUserID)
		return nil
	}

	// nolint:errcheck
	defer mutex.Unlock()

	referee, err := service.users.FindUserByIDNoCache(ctx, refereeUserID)
	if err != nil {
		return err
	}

	referrer, err := service.users.FindUserByRefCode(ctx, referrerCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return errorx.Wrap(errors.New("referrer code not found"), errorx.NotExist)
		}
		return err
	}

	if referrer.ID == referee.ID {
		return errorx.Wrap(errors.New("user cannot refer himself"), errorx.Invalid)
	}

	refereeCode, err := service.EnsureReferralCode(ctx, referee)
	if err != nil {
		return err
	}

	exists, err := service.store.ReferralExistsForReferee(ctx, refereeCode)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	updated, err := service.store.SetReferredBy(ctx, referee.ID, referrerCode)
	if err != nil {
		return err
	}

	if updated == 0 {
		current, err := service.users.FindUserByIDNoCache(ctx, referee.ID)
		if err != nil {
			return err
		}
		if current.ReferredBy == nil || *current.ReferredBy != referrerCode {
			return errorx.Wrap(errors.New("user already has a referrer"), errorx.Invalid)
		}
	}

	inserted, err := service.store.InsertReferral(ctx, &models.Referral{
		ReferBy: referrerCode,
		ReferTo: refereeCode,
	})
	if err != nil {
		if datastore.IsUniqueViolation(err) {
			return nil
		}
		return err
	}
	if inserted == 0 {
		return nil
	}

	log.Println("referral linked:", "referrer:", referrer.ID, "referee:", referee.ID)

	count, err := service.store.CountUnclaimedReferralsByCode(ctx, referrerCode)
	if err != nil {
		return err
	}

	_, err = service.milestones.EvaluateMilestones(ctx, referrer.ID, models.MilestoneTypeReferral, count)
	if err != nil {
		return err
	}

	err = service.board.SetScore(ctx, LEADERBOARD_REFERRAL, referrer.ID, float64(count))
	if err != nil {
		log.Println(err)
	}

	err = service.cache.Delete(ctx, DBKeyReferralSummary(referrer.ID))
	if err != nil {
		log.Println(err)
	}

	_ = service.users.ClearUserCache(ctx, referee.ID)

	return nil
}

// ClaimAllReferrals flips is_claimed on every unclaimed edge of the user's
// code. This is a settlement-state transition only; minting stays on the
// milestone claim path.
func (service *ServiceReferral) ClaimAllReferrals(ctx context.Context, user *models.User) (int, error) {
	if user == nil {
		return 0, errors.New("user is nil")
	}

	if user.RefCode == nil {
		return 0, nil
	}

	updated, err := service.store.ClaimAllReferrals(ctx, *user.RefCode)
	if err != nil {
		return 0, err
	}

	err = service.cache.Delete(ctx, DBKeyReferralSummary(user.ID))
	if err != nil {
		log.Println(err)
	}

	return int(updated), nil
}

func (service *ServiceReferral) GetReferralSummary(ctx context.Context, user *models.User) (*ReferralSummary, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}

	callback := func() (*ReferralSummary, error) {
		summary := &ReferralSummary{}

		if user.RefCode != nil {
			total, err := datastore.CountReferralsByCode(ctx, service.readonlyPostgresDB, *user.RefCode)
			if err != nil {
				return nil, err
			}
			summary.TotalReferralCount = total

			unclaimed, err := datastore.CountUnclaimedReferralsByCode(ctx, service.readonlyPostgresDB, *user.RefCode)
			if err != nil {
				return nil, err
			}
			summary.UnclaimedReferrals = unclaimed
		}

		milestones, err := service.milestones.GetMilestonesByUserAndType(ctx, user.ID, models.MilestoneTypeReferral)
		if err != nil {
			return nil, err
		}
		summary.MilestoneDetails = milestones

		points, err := service.users.GetUserCredit(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		summary.Points = points

		return summary, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyReferralSummary(user.ID), CACHE_TTL_1_MIN, callback)
}

func (service *ServiceReferral) GetReferralLeaderboard(ctx context.Context, limit int) ([]*models.LeaderboardItem, error) {
	if limit <= 0 {
		limit = REFERRAL_LEADERBOARD_DEFAULT_LIMIT
	}

	return redis_store.GetLeaderboard(ctx, service.redisDB, LEADERBOARD_REFERRAL, limit)
}
