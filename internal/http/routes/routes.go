package routes

import (
	"github.com/fasthttp/router"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"github.com/vanelang/review-flow/internal/cache"
	"github.com/vanelang/review-flow/internal/config"
	"github.com/vanelang/review-flow/internal/http/handlers"
	appmw "github.com/vanelang/review-flow/internal/http/middleware"
	"github.com/vanelang/review-flow/internal/observability"
)

// Deps are the shared services every handler is built from.
type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	Cache   cache.Cache
	Metrics *observability.Metrics
	Logger  zerolog.Logger
}

// New builds the complete HTTP handler: recovery, client IP resolution and
// request logging around the router.
func New(d Deps) fasthttp.RequestHandler {
	if d.Cache == nil {
		d.Cache = cache.Nop{}
	}
	db, cfg, c, m := d.DB, d.Config, d.Cache, d.Metrics

	r := router.New()
	r.SaveMatchedRoutePath = true

	// Session, cookie or API key; usage is recorded for API key calls only.
	authed := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return appmw.RequireUser(db, cfg)(appmw.RecordUsage(db)(h))
	}
	public := appmw.NewIPRateLimiter(cfg.PublicRatePerMinute)
	signin := appmw.NewIPRateLimiter(cfg.PublicRatePerMinute)

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})
	r.GET("/metrics", handlers.MetricsHandler(m))

	api := r.Group("/api")

	api.POST("/auth/signup", signin.Middleware(handlers.Signup(db, cfg)))
	api.POST("/auth/signin", signin.Middleware(handlers.Signin(db, cfg)))
	api.POST("/auth/logout", authed(handlers.Logout(cfg)))

	api.GET("/users/me", authed(handlers.GetMe()))
	api.PATCH("/users/me", authed(handlers.UpdateMe(db)))
	api.POST("/users/me/api-key", authed(handlers.RotateAPIKey(db)))
	api.POST("/users/me/password", authed(handlers.ChangePassword(db)))

	api.GET("/widgets", authed(handlers.ListWidgets(db)))
	api.POST("/widgets", authed(handlers.CreateWidget(db, c)))
	api.GET("/widgets/{id}", authed(handlers.GetWidget(db)))
	api.PATCH("/widgets/{id}", authed(handlers.UpdateWidget(db, c)))
	api.DELETE("/widgets/{id}", authed(handlers.DeleteWidget(db, c)))

	api.GET("/widgets/{id}/form", authed(handlers.GetForm(db)))
	api.PUT("/widgets/{id}/form", authed(handlers.SaveForm(db)))
	api.POST("/widgets/{id}/form/fields", authed(handlers.AddFormField(db)))
	api.PATCH("/widgets/{id}/form/fields/{fieldId}", authed(handlers.UpdateFormField(db)))
	api.DELETE("/widgets/{id}/form/fields/{fieldId}", authed(handlers.RemoveFormField(db)))
	api.PUT("/widgets/{id}/form/order", authed(handlers.ReorderFormFields(db)))

	api.GET("/reviews", authed(handlers.ListReviews(db)))
	api.POST("/reviews", authed(handlers.CreateReview(db, c, m)))
	api.GET("/reviews/{id}", authed(handlers.GetReview(db)))
	api.PATCH("/reviews/{id}", authed(handlers.UpdateReview(db, c)))
	api.PUT("/reviews/{id}", authed(handlers.UpdateReview(db, c)))

	api.GET("/dashboard/stats", authed(handlers.DashboardStats(db, c, cfg)))
	api.GET("/analytics/overview", authed(handlers.Overview(db, cfg)))
	api.GET("/analytics/trends", authed(handlers.Trends(db)))
	api.GET("/analytics/usage", authed(handlers.Usage(db, cfg)))

	api.POST("/webhooks/configure", authed(handlers.ConfigureWebhook(db)))
	api.GET("/webhooks/logs", authed(handlers.WebhookLogs(db)))

	api.OPTIONS("/public/widgets/{id}/reviews", handlers.PublicPreflight(db))
	api.POST("/public/widgets/{id}/reviews", public.Middleware(handlers.PublicSubmitReview(db, c, m)))

	proxies, err := appmw.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		d.Logger.Error().Err(err).Msg("ignoring APP_TRUSTED_PROXIES, X-Forwarded-For will not be trusted")
		proxies = &appmw.TrustedProxies{}
	}

	return appmw.Recover(d.Logger)(appmw.ClientIP(proxies)(appmw.RequestLogger(d.Logger, m)(r.Handler)))
}
