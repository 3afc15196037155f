package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/pitchperfect/waitlist/internal/api"
	"github.com/pitchperfect/waitlist/internal/auth"
	"github.com/pitchperfect/waitlist/internal/config"
	"github.com/pitchperfect/waitlist/internal/mailing"
	"github.com/pitchperfect/waitlist/internal/pkg/distlock"
	"github.com/pitchperfect/waitlist/internal/pkg/logger"
	"github.com/pitchperfect/waitlist/internal/repository/memory"
	"github.com/pitchperfect/waitlist/internal/repository/postgres"
	"github.com/pitchperfect/waitlist/internal/service/campaign"
	"github.com/pitchperfect/waitlist/internal/service/dispatch"
	"github.com/pitchperfect/waitlist/internal/service/signup"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

// openDatabase connects to Postgres. An empty URL returns a nil DB.
func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	dsn := cfg.URL
	if !strings.Contains(dsn, "connect_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "connect_timeout=5"
	}
	log.Printf("DB URL host portion: ...@%s/...", extractHost(dsn))

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// openRedis connects to Redis when configured. A failed ping is not fatal:
// dispatch locks fall back to Postgres advisory locks.
func openRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		log.Println("Redis not configured: dispatch locks use Postgres advisory locks (or in-process locks without a database)")
		return nil
	}
	var client *redis.Client
	if opts, err := redis.ParseURL(cfg.Addr); err == nil {
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("Warning: Redis connection failed (%s): %v, falling back", cfg.Addr, err)
		client.Close()
		return nil
	}
	log.Printf("Redis connected: %s (distributed dispatch locks enabled)", cfg.Addr)
	return client
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Configure(cfg.Logging.Level, cfg.Logging.ShouldRedactPII())

	host := cfg.Server.GetHost()
	if err := checkPortAvailable(host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	var (
		signupRepo   signup.Repository
		campaignRepo campaign.Repository
	)
	if db != nil {
		defer db.Close()
		signupRepo = postgres.NewSignupRepo(db)
		campaignRepo = postgres.NewCampaignRepo(db)
		log.Println("PostgreSQL connected")
	} else {
		signupRepo = memory.NewSignupRepo()
		campaignRepo = memory.NewCampaignRepo()
		log.Println("WARNING: DATABASE_URL not set: using in-memory storage, data is lost on restart")
	}

	redisClient := openRedis(ctx, cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	transport, err := mailing.NewTransport(cfg.Mail)
	if err != nil {
		log.Fatalf("Failed to configure mail transport: %v", err)
	}
	layout, err := mailing.NewLayout(cfg.Mail.ProductName, mailing.From{Email: cfg.Mail.FromEmail, Name: cfg.Mail.FromName})
	if err != nil {
		log.Fatalf("Failed to build email layout: %v", err)
	}
	log.Printf("Mail transport: %s (from %s)", transport.Mode(), cfg.Mail.FromEmail)

	dispatcher := dispatch.NewService(
		campaignRepo,
		signupRepo,
		transport,
		layout,
		distlock.NewFactory(redisClient, db, cfg.Dispatch.LockTTL()),
		dispatch.Config{
			RenderConcurrency: cfg.Dispatch.RenderConcurrency,
			LockTTL:           cfg.Dispatch.LockTTL(),
		},
	)

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Fatalf("Auth configuration invalid: %v", err)
	}
	if authManager.Enabled() {
		// Catch rotated OAuth credentials at boot instead of at first login.
		log.Println("Validating Google OAuth credentials...")
		if err := authManager.ValidateCredentials(ctx); err != nil {
			log.Fatalf("OAuth pre-flight FAILED: %v", err)
		}
		authManager.CleanupExpiredSessions(ctx, time.Hour)
		log.Printf("Google OAuth enabled for domain: %s (callback: %s/auth/callback)", cfg.Auth.AllowedDomain, cfg.Auth.BaseURL)
	} else {
		log.Println("WARNING: Authentication disabled: admin routes are open")
	}

	handlers := api.NewHandlers(signup.NewService(signupRepo), campaign.NewService(campaignRepo), dispatcher)
	health := api.NewHealthChecker(db, redisClient, transport.Mode())
	server := api.NewServer(cfg.Server, handlers, health, authManager)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	// Cancel background tasks
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
