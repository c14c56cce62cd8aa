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
)

type ServiceVote struct {
	container          *do.Injector
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB

	serviceUser      *ServiceUser
	serviceMilestone *ServiceMilestone
	serviceReferral  *ServiceReferral
	serviceTag       *ServiceTag
	serviceConfig    *ServiceConfig
}

func NewServiceVote(container *do.Injector) (*ServiceVote, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	readonlyPostgresDB, err := do.InvokeNamed[*bun.DB](container, "db-readonly")
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

	return &ServiceVote{container, postgresDB, readonlyPostgresDB, serviceUser, serviceMilestone, serviceReferral, serviceTag, serviceConfig}, nil
}

// CastVote records one vote per (user, meme), credits the voter and rolls the
// milestone counters of both voter and creator.
func (service *ServiceVote) CastVote(ctx context.Context, user *models.User, memeID string) (*models.Vote, error) {
	if user == nil {
		return nil, errors.New("user is nil")
	}

	meme, err := datastore.FindMemeByID(ctx, service.postgresDB, memeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errorx.Wrap(errors.New("meme not found"), errorx.NotExist)
		}
		return nil, err
	}

	if meme.IsVotingClose {
		return nil, errorx.Wrap(errors.New("voting is closed"), errorx.Invalid)
	}

	if meme.CreatorID == user.ID {
		return nil, errorx.Wrap(errors.New("user cannot vote his own meme"), errorx.Invalid)
	}

	vote := &models.Vote{
		ID:     uuid.NewString(),
		UserID: user.ID,
		MemeID: meme.ID,
	}

	err = datastore.InsertVote(ctx, service.postgresDB, vote)
	if err != nil {
		if datastore.IsUniqueViolation(err) {
			return nil, errorx.Wrap(errors.New("user already voted this meme"), errorx.Invalid)
		}
		return nil, err
	}

	err = datastore.IncrementMemeVoteCount(ctx, service.postgresDB, meme.ID)
	if err != nil {
		log.Println("increment vote count:", err)
	}

	creditPerVote, _ := service.serviceConfig.GetIntConfig(ctx, CONFIG_CREDIT_PER_VOTE, CREDIT_PER_VOTE_DEFAULT)
	err = service.serviceUser.AddUserCredit(ctx, user.ID, creditPerVote, fmt.Sprintf("vote:%s", meme.ID))
	if err != nil {
		log.Println("credit vote:", err)
	}

	// first qualifying activity makes the voter referable
	_, err = service.serviceReferral.EnsureReferralCode(ctx, user)
	if err != nil {
		log.Println("ensure referral code:", err)
	}

	voteCount, err := datastore.CountVotesByUser(ctx, service.postgresDB, user.ID)
	if err != nil {
		return nil, err
	}

	_, err = service.serviceMilestone.EvaluateMilestones(ctx, user.ID, models.MilestoneTypeVote, voteCount)
	if err != nil {
		return nil, err
	}

	receivedCount, err := datastore.CountVotesReceivedByCreator(ctx, service.postgresDB, meme.CreatorID)
	if err != nil {
		return nil, err
	}

	_, err = service.serviceMilestone.EvaluateMilestones(ctx, meme.CreatorID, models.MilestoneTypeVoteTotal, receivedCount)
	if err != nil {
		return nil, err
	}

	if len(meme.TagIDs) > 0 {
		err = service.serviceTag.OnTagEvent(ctx, meme.TagIDs, TagEventVote)
		if err != nil {
			log.Println("tag vote event:", err)
		}
	}

	return vote, nil
}
