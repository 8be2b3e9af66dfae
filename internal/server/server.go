// Package server boots the Charvi application: configuration, Mongo, Redis,
// storage, the queue, every service, and the HTTP and gRPC listeners.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charvilabs/charvi/app/chat"
	"github.com/charvilabs/charvi/app/controllers"
	"github.com/charvilabs/charvi/app/graphql"
	"github.com/charvilabs/charvi/app/jobs"
	"github.com/charvilabs/charvi/app/repositories"
	"github.com/charvilabs/charvi/app/routes"
	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/database"
	"github.com/charvilabs/charvi/pkg/cache"
	grpcserver "github.com/charvilabs/charvi/pkg/grpc"
	"github.com/charvilabs/charvi/pkg/llm"
	"github.com/charvilabs/charvi/pkg/logger"
	"github.com/charvilabs/charvi/pkg/metrics"
	"github.com/charvilabs/charvi/pkg/middleware"
	"github.com/charvilabs/charvi/pkg/mongodb"
	"github.com/charvilabs/charvi/pkg/notification"
	"github.com/charvilabs/charvi/pkg/payment"
	"github.com/charvilabs/charvi/pkg/queue"
	"github.com/charvilabs/charvi/pkg/reqid"
	"github.com/charvilabs/charvi/pkg/router"
	"github.com/charvilabs/charvi/pkg/schedule"
	"github.com/charvilabs/charvi/pkg/storage"
	"github.com/charvilabs/charvi/pkg/workerpool"
	"github.com/charvilabs/charvi/pkg/ws"
)

const (
	queueWorkers    = 5
	chatPoolSize    = 16
	shutdownTimeout = 10 * time.Second
)

// Start boots everything and blocks until SIGINT/SIGTERM.
func Start() error {
	if err := config.Load(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Infrastructure ───────────────────────────────────────────────────────
	client, db, err := mongodb.Connect(ctx, config.MongoURI(), config.MongoDatabase())
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()

	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Warn("boot: index creation failed", "error", err)
	}

	if config.LogToMongo() {
		mh, err := logger.NewMongoHandler(config.MongoURI(), config.MongoDatabase(), "logs")
		if err != nil {
			logger.Warn("boot: mongo log sink unavailable", "error", err)
		} else {
			defer mh.Close()
			logger.L = slog.New(logger.NewMultiHandler(logger.L.Handler(), mh))
			slog.SetDefault(logger.L)
		}
	}

	if err := cache.Connect(); err != nil {
		logger.Warn("boot: redis unavailable, cache and queue degrade gracefully", "error", err)
	}
	storage.Connect()
	notification.SetSlackWebhook(config.SlackWebhookURL())

	if cache.RDB != nil {
		queue.SetDriver(queue.NewRedisDriver(cache.RDB))
	}
	queue.UseCollection(db.Collection("failed_jobs"))
	jobs.RegisterAll()
	queue.StartWorkers(ctx, queueWorkers)

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repositories.NewUserRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)
	productRepo := repositories.NewProductRepository(db)
	cartRepo := repositories.NewCartRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)
	wishlistRepo := repositories.NewWishlistRepository(db)
	addressRepo := repositories.NewAddressRepository(db)
	analyticsRepo := repositories.NewAnalyticsRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	var notifier services.Notifier
	if cache.RDB != nil {
		notifier = services.QueueNotifier{}
	} else {
		notifier = services.MailNotifier{}
	}

	authSvc := services.NewAuthService(userRepo, resetRepo, notifier)
	orderSvc := services.NewOrderService(orderRepo, userRepo, notifier)
	normalizer := services.NewCartNormalizer(productRepo)
	cartSvc := services.NewCartService(cartRepo, normalizer, productRepo)
	productSvc := services.NewProductService(productRepo)
	reviewSvc := services.NewReviewService(reviewRepo, productRepo, userRepo)
	wishlistSvc := services.NewWishlistService(wishlistRepo, productRepo)
	addressSvc := services.NewAddressService(addressRepo)
	analyticsSvc := services.NewAnalyticsService(analyticsRepo)
	checkoutSvc := services.NewCheckoutService(cartSvc, orderSvc, addressRepo, payment.New())

	var completer chat.Completer
	if lc := llm.New(); lc.Configured() {
		completer = lc
	} else {
		logger.Warn("boot: LLM not configured, chat runs on rules and heuristics only")
	}
	chatRouter := chat.NewRouter(orderSvc, cartSvc, completer)

	// ── HTTP ─────────────────────────────────────────────────────────────────
	r := router.New()
	r.Use(
		metrics.Middleware(),
		middleware.Recovery,
		reqid.Middleware(),
		middleware.Logger,
		middleware.CORS(middleware.DefaultCORSOptions()),
		middleware.RateLimit(300, time.Minute),
	)

	routes.RegisterAPI(r, &routes.Controllers{
		Auth:     controllers.NewAuthController(authSvc),
		Products: controllers.NewProductController(productSvc, reviewSvc),
		Carts:    controllers.NewCartController(cartSvc),
		Orders:   controllers.NewOrderController(orderSvc),
		Checkout: controllers.NewCheckoutController(checkoutSvc),
		Chat:     controllers.NewChatController(chatRouter),
		Wishlist: controllers.NewWishlistController(wishlistSvc),
		Address:  controllers.NewAddressController(addressSvc),
		Admin:    controllers.NewAdminController(analyticsSvc),
	})

	r.HandleFunc("/metrics", metrics.Handler())

	gqlHandler := graphql.Handler(productSvc, orderSvc)
	r.Get("/graphql", "graphql.get", gqlHandler, middleware.OptionalAuth)
	r.Post("/graphql", "graphql.post", gqlHandler, middleware.OptionalAuth)

	// Order status live streams: SSE for the dashboard, WS for chat.
	broker := newStatusBroker()
	chatPool := workerpool.New(chatPoolSize)
	defer chatPool.Shutdown()
	chatHub := newChatHub(chatRouter, chatPool)
	listenOrderEvents(broker, chatHub)
	go chatHub.Run()

	r.Get("/api/events/orders", "events.orders", streamOrderEvents(broker), middleware.Auth)
	r.HandleFunc("/ws/chat", func(w http.ResponseWriter, req *http.Request) {
		ws.Upgrade(w, req, chatHub)
	})

	// ── Background ───────────────────────────────────────────────────────────
	registerSchedules(analyticsSvc, notifier)
	schedule.Start(ctx)

	grpcSrv, grpcLis, err := grpcserver.Start(config.GRPCPort())
	if err != nil {
		logger.Warn("boot: gRPC listener failed", "port", config.GRPCPort(), "error", err)
	} else {
		go func() {
			if err := grpcSrv.Serve(grpcLis); err != nil {
				logger.Error("grpc: serve failed", "error", err)
			}
		}()
		defer grpcserver.Stop(grpcSrv)
	}

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("charvi listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("charvi shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// newChatHub builds the WebSocket hub that answers chat messages. WS clients
// are anonymous; identity-bound questions get the login prompt. Replies can
// take an LLM round-trip, so they run on a bounded pool instead of the hub
// loop.
func newChatHub(chatRouter *chat.Router, pool *workerpool.Pool) *ws.Hub {
	hub := ws.NewHub()
	hub.OnMessage = func(_ *ws.Hub, msg ws.Message) {
		var in struct {
			Message string `json:"message"`
		}
		text := string(msg.Data)
		if err := json.Unmarshal(msg.Data, &in); err == nil && in.Message != "" {
			text = in.Message
		}
		if strings.TrimSpace(text) == "" {
			return
		}

		err := pool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			sendReply(msg.Client, chatRouter.Handle(ctx, nil, text))
		})
		if errors.Is(err, workerpool.ErrPoolFull) {
			sendReply(msg.Client, chat.Reply{
				Intent:  chat.IntentUnknown,
				Message: "I'm handling a lot of messages right now, give me a moment and try again.",
			})
		}
	}
	return hub
}

func sendReply(client *ws.Client, reply chat.Reply) {
	if data, err := json.Marshal(reply); err == nil {
		client.Send(data)
	}
}

// registerSchedules sets up recurring tasks. The sales digest mails the shop
// owner every morning at 07:00.
func registerSchedules(analytics *services.AnalyticsService, notifier services.Notifier) {
	schedule.Cron("0 7 * * *").Name("sales-digest").WithoutOverlapping().Run(func() {
		to := config.AdminEmail()
		if to == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		body, ok, err := analytics.DailyDigest(ctx)
		if err != nil {
			logger.Warn("digest: aggregation failed", "error", err)
			return
		}
		if !ok {
			logger.Info("digest: no sales yesterday, skipping")
			return
		}
		if err := notifier.Notify(ctx, to, "Charvi daily sales digest", body); err != nil {
			logger.Warn("digest: mail failed", "error", err)
		}
	})
}
