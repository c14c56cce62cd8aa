package handler

import (
	"errors"

	"memedrop/internal/interfaces"
	"memedrop/internal/services"

	"github.com/go-redis/redis_rate/v10"
	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupReward struct {
	container *do.Injector
}

func (gr *groupReward) ClaimReward(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		UserID    string `json:"userId"`
		Type      string `json:"type"`
		Milestone int    `json:"milestone"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	if err := services.VerifyOwnership(user, payload.UserID); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	limiter, err := do.Invoke[interfaces.Limiter](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	err = limiter.Allow(ctx, services.LimitKeyClaim(user.ID), redis_rate.PerMinute(services.CLAIM_RATE_LIMIT_PER_MINUTE))
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceMilestone, err := do.Invoke[*services.ServiceMilestone](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	update, err := serviceMilestone.Claim(ctx, user, payload.Type, payload.Milestone)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"update": update,
	}, nil)
}

func (gr *groupReward) UpdateAllReferrals(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		UserID string `json:"userId"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	if err := services.VerifyOwnership(user, payload.UserID); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceReferral, err := do.Invoke[*services.ServiceReferral](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	updatedCount, err := serviceReferral.ClaimAllReferrals(ctx, user)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"updatedCount": updatedCount,
	}, nil)
}

func (gr *groupReward) GetReferralSummary(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	userID := c.QueryParam("userId")
	if userID == "" {
		return httpx.RestAbort(c, nil, errorx.Wrap(errors.New("missing userId"), errorx.Invalid))
	}

	if err := services.VerifyOwnership(user, userID); err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	serviceReferral, err := do.Invoke[*services.ServiceReferral](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	summary, err := serviceReferral.GetReferralSummary(ctx, user)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, summary, nil)
}
