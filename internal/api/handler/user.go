package handler

import (
	"log"

	"memedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupUser struct {
	container *do.Injector
}

func (gr *groupUser) Me(c echo.Context) error {
	ctx := c.Request().Context()

	// find user in system. If not create new user
	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	refCodeParam := c.QueryParam("refCode")
	if refCodeParam != "" {
		serviceReferral, err := do.Invoke[*services.ServiceReferral](gr.container)
		if err != nil {
			return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
		}

		// linking is best effort here, a bad code must not block sign-in
		err = serviceReferral.LinkReferral(ctx, user.ID, refCodeParam)
		if err != nil {
			log.Println("link referral:", err)
		}
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	credit, err := serviceUser.GetUserCredit(ctx, user.ID)
	if err == nil {
		user.TotalCredit = credit
	}

	authentication, err := do.Invoke[*services.Authentication](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	tokenString, err := authentication.CreateToken(user)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, map[string]interface{}{
		"token": tokenString,
		"user":  user,
	}, nil)
}

func (gr *groupUser) ConnectEVMWallet(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := ResolveValidUser(ctx, gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	var payload struct {
		Address string `json:"address"`
	}
	if err := c.Bind(&payload); err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Invalid))
	}

	serviceUser, err := do.Invoke[*services.ServiceUser](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	err = serviceUser.ConnectEVMWallet(ctx, user, payload.Address)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, user, nil)
}
