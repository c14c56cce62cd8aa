package services

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-redsync/redsync/v4"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"memedrop/internal/datastore"
	"memedrop/internal/models"
	"memedrop/internal/pkg/caching"
)

type ServiceUser struct {
	container          *do.Injector
	redisDB            redis.UniversalClient
	rs                 *redsync.Redsync
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache
}

func NewServiceUser(container *do.Injector) (*ServiceUser, error) {
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

	return &ServiceUser{container, redisDB, rs, postgresDB, readonlyPostgresDB, cache, readonlyCache}, nil
}

func (service *ServiceUser) FindOrCreateUser(ctx context.Context, userAuth *models.UserFromAuth) (*models.User, error) {
	if userAuth == nil {
		return nil, errors.New("userAuth is nil")
	}

	user, _ := service.FindUserByID(ctx, userAuth.ID)
	if user != nil {
		return user, nil
	}

	now := time.Now()
	newUser := &models.User{
		ID:        userAuth.ID,
		Username:  strings.ToLower(userAuth.Username),
		CreatedAt: now,
		UpdatedAt: now,
	}

	log.Println("Create new user:", "user:", newUser.ID, "username:", newUser.Username)
	user, err := datastore.CreateUser(ctx, service.postgresDB, newUser)
	if err != nil {
		if datastore.IsUniqueViolation(err) {
			return service.FindUserByIDNoCache(ctx, userAuth.ID)
		}
		return nil, err
	}

	user.IsNewUser = true
	return user, nil
}

func (service *ServiceUser) FindUserByID(ctx context.Context, userID string) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.FindUserByID(ctx, service.readonlyPostgresDB, userID)
	}
	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUser(userID), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceUser) FindUserByIDNoCache(ctx context.Context, userID string) (*models.User, error) {
	return datastore.FindUserByID(ctx, service.postgresDB, userID)
}

func (service *ServiceUser) FindUserByRefCode(ctx context.Context, refCode string) (*models.User, error) {
	callback := func() (*models.User, error) {
		return datastore.FindUserByRefCode(ctx, service.readonlyPostgresDB, refCode)
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserByRefCode(refCode), CACHE_TTL_5_MINS, callback)
}

// ConnectEVMWallet links the mint recipient address. The unique index on
// wallet_address rejects an address already linked to another account.
func (service *ServiceUser) ConnectEVMWallet(ctx context.Context, user *models.User, address string) error {
	if user == nil {
		return errors.New("user is nil")
	}

	if !common.IsHexAddress(address) {
		return errorx.Wrap(errors.New("invalid wallet address"), errorx.Invalid)
	}

	if user.WalletAddress != nil {
		return errorx.Wrap(errors.New("already connected"), errorx.Invalid)
	}

	normalized := common.HexToAddress(address).Hex()
	err := datastore.SetWalletAddress(ctx, service.postgresDB, user.ID, normalized)
	if err != nil {
		if datastore.IsUniqueViolation(err) {
			return errorx.Wrap(errors.New("wallet already linked to another account"), errorx.Invalid)
		}
		return err
	}

	return service.ClearUserCache(ctx, user.ID)
}

func (service *ServiceUser) GetUserCredit(ctx context.Context, userID string) (int, error) {
	callback := func() (int, error) {
		total, err := datastore.GetUserTotalCredit(ctx, service.readonlyPostgresDB, userID)
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return total, err
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyUserCredit(userID), CACHE_TTL_5_MINS, callback)
}

func (service *ServiceUser) AddUserCredit(ctx context.Context, userID string, points int, action string) error {
	credit := &models.UserCredit{
		UserID: userID,
		Points: points,
		Action: action,
	}

	err := datastore.InsertUserCredit(ctx, service.postgresDB, credit)
	if err != nil {
		return err
	}

	err = service.cache.Delete(ctx, DBKeyUserCredit(userID))
	if err != nil {
		log.Println(err)
	}

	return nil
}

func (service *ServiceUser) ClearUserCache(ctx context.Context, userID string) error {
	err := service.cache.Delete(ctx, DBKeyMe(userID))
	if err != nil {
		log.Println(err)
	}

	err = service.cache.Delete(ctx, DBKeyUser(userID))
	if err != nil {
		log.Println(err)
	}

	return nil
}
