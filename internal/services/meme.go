package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/samber/do"
	"github.com/uptrace/bun"

	"memedrop/internal/datastore"
	"memedrop/internal/models"
	"memedrop/internal/pkg/caching"
)

type ServiceMeme struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
	cache              caching.Cache
	readonlyCache      caching.ReadOnlyCache

	serviceUser      *ServiceUser
	serviceMilestone *ServiceMilestone
	serviceReferral  *ServiceReferral
	serviceTag       *ServiceTag
	serviceConfig    *ServiceConfig
}

type MemeUpload struct {
	Caption  string  `json:"caption"`
	ImageURL string  `json:"imageUrl"`
	TagIDs   []int64 `json:"tagIds"`
}

func NewServiceMeme(container *do.Injector) (*ServiceMeme, error) {
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

	serviceReferral, err := do.Invoke[*ServiceReferral](container)
	if err != nil {
		return nil, err
	}

	serviceTag, err := do.Invoke[*ServiceTag](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	return &ServiceMeme{container, postgresDB, readonlyPostgresDB, cache, readonlyCache, serviceUser, serviceMilestone, serviceReferral, serviceTag, serviceConfig}, nil
}

func (service *ServiceMeme) FindMemeByID(ctx context.Context, memeID string) (*models.Meme, error) {
	callback := func() (*models.Meme, error) {
		meme, err := datastore.FindMemeByID(ctx, service.readonlyPostgresDB, memeID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, errorx.Wrap(errors.New("meme not found"), errorx.NotExist)
			}
			return nil, err
		}
		return meme, nil
	}

	return caching.UseCacheWithRO(ctx, service.readonlyCache, service.cache, DBKeyMeme(memeID), CACHE_TTL_5_MINS, callback)
}

// UploadMeme stores the meme, credits the creator and rolls the upload
// milestone counters.
func (service *ServiceMeme) UploadMeme(ctx context.Context, user *models.User, upload *MemeUpload) (*models.Meme, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}

	if upload == nil || upload.ImageURL == "" {
		return nil, errorx.Wrap(errors.New("missing image"), errorx.Invalid)
	}

	meme := &models.Meme{
		ID:        uuid.NewString(),
		CreatorID: user.ID,
		Caption:   upload.Caption,
		ImageURL:  upload.ImageURL,
		TagIDs:    upload.TagIDs,
	}

	meme, err := datastore.InsertMeme(ctx, service.postgresDB, meme)
	if err != nil {
		return nil, err
	}

	if len(meme.TagIDs) > 0 {
		err = service.serviceTag.OnTagEvent(ctx, meme.TagIDs, TagEventUpload)
		if err != nil {
			log.Println("tag upload event:", err)
		}
	}

	creditPerUpload, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_CREDIT_PER_UPLOAD, CREDIT_PER_UPLOAD_DEFAULT)
	err = service.serviceUser.AddUserCredit(ctx, user.ID, creditPerUpload, fmt.Sprintf("upload:%s", meme.ID))
	if err != nil {
		log.Println("credit upload:", err)
	}

	_, err = service.serviceReferral.EnsureReferralCode(ctx, user)
	if err != nil {
		log.Println("ensure referral code:", err)
	}

	uploadCount, err := datastore.CountMemesByCreator(ctx, service.postgresDB, user.ID)
	if err != nil {
		return nil, err
	}

	_, err = service.serviceMilestone.EvaluateMilestones(ctx, user.ID, models.MilestoneTypeUpload, uploadCount)
	if err != nil {
		return nil, err
	}

	percentileCount, err := datastore.CountPercentileMemesByCreator(ctx, service.postgresDB, user.ID)
	if err != nil {
		return nil, err
	}

	_, err = service.serviceMilestone.EvaluateMilestones(ctx, user.ID, models.MilestoneTypeUploadTotal, percentileCount)
	if err != nil {
		return nil, err
	}

	return meme, nil
}
