package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"food-marketplace-api/cache"
	"food-marketplace-api/config"
	"food-marketplace-api/eta"
	"food-marketplace-api/events"
	"food-marketplace-api/handlers"
	"food-marketplace-api/logging"
	"food-marketplace-api/metrics"
	"food-marketplace-api/middleware"
	"food-marketplace-api/routes"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "food-marketplace-api",
	Short: "Food marketplace order API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := bootDB(config.Load()); err != nil {
			return err
		}
		fmt.Println("✅ Database migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users, a restaurant and its menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		db, err := bootDB(cfg)
		if err != nil {
			return err
		}
		if err := config.Seed(db); err != nil {
			return err
		}
		fmt.Printf("✅ Seeded demo data (password for every account: %s)\n", config.DemoPassword)
		return nil
	},
}

var (
	etaPrep  int
	etaQueue int
	etaKm    float64
)

var etaCmd = &cobra.Command{
	Use:   "eta",
	Short: "Print the delivery estimate breakdown for the given inputs",
	RunE: func(cmd *cobra.Command, args []string) error {
		if etaPrep < 0 || etaQueue < 0 || etaKm < 0 {
			return errors.New("--prep, --queue and --km must not be negative")
		}
		res := eta.Calculate(eta.Params{
			AvgPrepTime: etaPrep,
			QueueDepth:  etaQueue,
			DistanceKm:  etaKm,
		}, time.Now())
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "prep:      %d min\n", res.Breakdown.Prep)
		fmt.Fprintf(out, "driving:   %d min\n", res.Breakdown.Driving)
		fmt.Fprintf(out, "total:     %d min\n", res.TotalMinutes)
		fmt.Fprintf(out, "arrives:   %s\n", res.EstimatedDeliveryTime.Format(time.RFC3339))
		return nil
	},
}

func init() {
	etaCmd.Flags().IntVar(&etaPrep, "prep", 20, "restaurant average prep time in minutes")
	etaCmd.Flags().IntVar(&etaQueue, "queue", 0, "orders ahead in the kitchen queue")
	etaCmd.Flags().Float64Var(&etaKm, "km", 0, "delivery distance in kilometres")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(etaCmd)
}

// bootDB opens the database and brings the schema up to date.
func bootDB(cfg config.Config) (*gorm.DB, error) {
	db, err := config.OpenDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := config.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	db, err := bootDB(cfg)
	if err != nil {
		return err
	}
	log.WithField("driver", cfg.DBDriver).Info("database ready")

	store, closeStore := openCache(ctx, cfg, log)
	defer closeStore()

	hub := events.NewHub(log)
	go hub.Run(ctx)

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	publishers := events.Multi{hub}
	if cfg.RabbitURL != "" {
		rabbit, err := events.DialRabbit(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		publishers = append(publishers, rabbit)
		checks["rabbitmq"] = rabbit.Ping
		log.WithField("exchange", cfg.RabbitExchange).Info("publishing order events to rabbitmq")
	}

	m := metrics.New()
	repos := services.NewRepositories(db)
	opts := services.OptionsFromConfig(cfg, m)
	tokens := middleware.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	h := handlers.New(
		services.NewOrderService(repos, publishers, log, opts),
		services.NewRestaurantService(repos, store, log, opts),
		services.NewAuthService(repos, tokens, log),
		hub,
		log,
	)

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(), m.Middleware())

	r.GET("/health", handlers.Health("Food Marketplace Order API", checks, gin.H{"eta_mode": cfg.ETAMode}))
	r.GET("/metrics", gin.WrapH(m.Handler()))

	routes.SetupRoutes(r, h, tokens, middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openCache connects to redis when REDIS_ADDR is set and falls back to the
// in-process store otherwise.
func openCache(ctx context.Context, cfg config.Config, log *logrus.Logger) (cache.Store, func()) {
	if cfg.RedisAddr == "" {
		return cache.NewMemory(), func() {}
	}
	rs, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory cache")
		return cache.NewMemory(), func() {}
	}
	log.WithField("addr", cfg.RedisAddr).Info("using redis cache")
	return rs, func() { _ = rs.Close() }
}
