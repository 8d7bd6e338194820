package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tunnelpay/tunnelpay-backend/api/controllers"
	"github.com/tunnelpay/tunnelpay-backend/api/middleware"
	activationsvc "github.com/tunnelpay/tunnelpay-backend/internal/activation"
	broadcastsvc "github.com/tunnelpay/tunnelpay-backend/internal/broadcast"
	paymentsvc "github.com/tunnelpay/tunnelpay-backend/internal/payments"
	referralsvc "github.com/tunnelpay/tunnelpay-backend/internal/referrals"
	usersvc "github.com/tunnelpay/tunnelpay-backend/internal/users"
	"github.com/tunnelpay/tunnelpay-backend/pkg/config"
	"github.com/tunnelpay/tunnelpay-backend/pkg/db"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
	"github.com/tunnelpay/tunnelpay-backend/pkg/plans"
	"github.com/tunnelpay/tunnelpay-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalog *plans.Catalog,
	userService *usersvc.Service,
	usersRepo usersvc.Repository,
	paymentService *paymentsvc.Service,
	paymentsRepo paymentsvc.Repository,
	activationService *activationsvc.Service,
	subscriptionsRepo activationsvc.Repository,
	referralService *referralsvc.Service,
	dispatcher *broadcastsvc.Dispatcher,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	verifyPolicy := middleware.NewRateLimitPolicy(
		"verify",
		cfg.RateLimit.VerifyWindow,
		cfg.RateLimit.VerifyLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/plans", controllers.PlansList(catalog, logg))

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.UsersRegister(userService, logg))
			r.Get("/{telegramID}", controllers.UsersGet(userService, logg))
			r.Get("/{telegramID}/history", controllers.IntentHistory(paymentService, userService, logg))
			r.Get("/{telegramID}/subscription", controllers.SubscriptionStatus(activationService, userService, logg))
			r.Post("/{telegramID}/payouts", controllers.PayoutRequest(referralService, userService, logg))
		})

		r.Route("/intents", func(r chi.Router) {
			r.Post("/", controllers.IntentCreate(paymentService, userService, logg))
			r.Get("/{intentID}", controllers.IntentGet(paymentService, logg))
			r.With(middleware.RateLimit(verifyPolicy, redisClient, logg)).
				Post("/{intentID}/verify", controllers.IntentVerify(activationService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.AdminAuth(cfg.Admin.APIToken, logg))

		r.Route("/broadcast", func(r chi.Router) {
			r.Post("/", controllers.AdminBroadcastStart(dispatcher, usersRepo, logg))
			r.Get("/progress", controllers.AdminBroadcastProgress(dispatcher, logg))
			r.Post("/cancel", controllers.AdminBroadcastCancel(dispatcher, logg))
		})

		r.Route("/payouts", func(r chi.Router) {
			r.Get("/", controllers.AdminPayoutsList(referralService, logg))
			r.Post("/{payoutID}/complete", controllers.AdminPayoutComplete(referralService, logg))
		})

		r.Get("/stats", controllers.AdminStats(usersRepo, subscriptionsRepo, paymentsRepo, logg))
	})

	return r
}
