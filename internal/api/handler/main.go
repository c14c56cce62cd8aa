package handler

import (
	"net/http"

	"memedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/do"
)

type Config struct {
	Container *do.Injector
	Mode      string
	Origins   []string
}

func New(cfg *Config) (http.Handler, error) {
	r := echo.New()
	r.Pre(middleware.RemoveTrailingSlash())
	if cfg.Mode == "debug" {
		r.Debug = true
		pprof.Register(r)
	}

	r.JSONSerializer = httpx.SegmentJSONSerializer{}
	r.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339}\t${method}\t${uri}\t${status}\t${latency_human}\n",
	}))
	r.Use(middleware.Recover())

	authentication, err := do.Invoke[*services.Authentication](cfg.Container)
	if err != nil {
		return nil, err
	}

	cors := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.Origins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           60 * 60,
	})

	r.GET("", func(c echo.Context) error {
		return c.String(http.StatusOK, "🚀")
	})

	// reward surface kept at the root for the settlement tooling
	routesReward := r.Group("")
	routesReward.Use(cors)
	routesReward.Use(Authn(authentication))
	{
		rw := groupReward{cfg.Container}
		routesReward.POST("/claimreward", rw.ClaimReward)
		routesReward.POST("/rewards/referrals/updateall", rw.UpdateAllReferrals)
		routesReward.GET("/rewards/referrals", rw.GetReferralSummary)

		cr := groupCron{cfg.Container}
		routesReward.POST("/cronjob/uploadvote", cr.UploadVote)
	}

	routesAPIv1 := r.Group("/api/v1")
	{
		routesAPIv1.Use(cors)
		routesAPIv1.Use(Authn(authentication)) // Authn will NOT terminate unauthenticated request.

		routesAPIv1User := routesAPIv1.Group("/user")
		{
			u := groupUser{cfg.Container}
			routesAPIv1User.GET("/me", u.Me)
			routesAPIv1User.POST("/connect/evm", u.ConnectEVMWallet)
		}

		routesAPIv1Meme := routesAPIv1.Group("/meme")
		{
			m := groupMeme{cfg.Container}
			routesAPIv1Meme.POST("", m.Upload)
			routesAPIv1Meme.GET("/:id", m.Show)
			routesAPIv1Meme.POST("/:id/vote", m.Vote)
		}

		l := groupLeaderboard{cfg.Container}
		routesAPIv1.GET("/leaderboard/referral", l.GetTopReferralLeaderboard)

		t := groupTag{cfg.Container}
		routesAPIv1.GET("/tags/top", t.TopTags)
	}

	return r, nil
}
