package handler

import (
	"memedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupCron struct {
	container *do.Injector
}

// UploadVote pushes the current unsettled vote batch onchain. The scheduled
// runner triggers this; exposing it as a route keeps manual reruns possible.
func (gr *groupCron) UploadVote(c echo.Context) error {
	ctx := c.Request().Context()

	serviceSettlement, err := do.Invoke[*services.ServiceSettlement](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	batch, err := serviceSettlement.SettleVotes(ctx)
	if err != nil {
		return httpx.RestAbort(c, nil, err)
	}

	return httpx.RestAbort(c, batch, nil)
}
