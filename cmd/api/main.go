package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pinme-ledger/internal/application/auth"
	"github.com/pinme-ledger/internal/application/reminder"
	"github.com/pinme-ledger/internal/config"
	"github.com/pinme-ledger/internal/infrastructure/dynamo"
	jwtinfra "github.com/pinme-ledger/internal/infrastructure/jwt"
	"github.com/pinme-ledger/internal/infrastructure/memory"
	"github.com/pinme-ledger/internal/infrastructure/postgres"
	"github.com/pinme-ledger/internal/infrastructure/sns"
	"github.com/pinme-ledger/internal/infrastructure/whatsapp"
	transporthttp "github.com/pinme-ledger/internal/transport/http"
)

// backend groups the repositories of one store implementation.
type backend struct {
	users     transporthttp.UserRepository
	tokens    auth.TokenStore
	reminders reminder.Store
	close     func()
}

// sender is satisfied by every messaging transport.
type sender interface {
	SendText(ctx context.Context, to, text string) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	be := openBackend(rootCtx, cfg)
	if be.close != nil {
		defer be.close()
	}

	msg := openSender(rootCtx, cfg)

	// Sessions cannot be issued without the signing keys.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider not available: %v", err)
	}

	authSvc := auth.NewService(auth.ServiceDeps{
		TokenRepo: be.tokens,
		UserRepo:  be.users,
		Sender:    msg,
		CodeTTL:   cfg.OTPTTL,
	})
	reminderSvc := reminder.NewService(be.reminders, nil)

	scheduler := reminder.NewScheduler(be.reminders, msg, reminder.SchedulerOptions{
		PollInterval: cfg.ReminderPollInterval,
		BatchSize:    cfg.ReminderBatchSize,
		CallTimeout:  cfg.DispatchTimeout,
	})
	go scheduler.Run(rootCtx)

	if cfg.TokenCleanupInterval > 0 {
		go runTokenCleanupLoop(rootCtx, authSvc, cfg.TokenCleanupInterval)
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		UserRepo:        be.users,
		AuthService:     authSvc,
		ReminderService: reminderSvc,
		JWTProvider:     jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s, transport=%s)",
			cfg.AppPort, cfg.AppEnv, cfg.StoreBackend, cfg.MessagingTransport)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down server...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			log.Printf("server error: %v", err)
		}
	}

	cancelRoot()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func openBackend(ctx context.Context, cfg *config.Config) backend {
	switch cfg.StoreBackend {
	case config.StorePostgres:
		pg, err := postgres.NewStore(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to init postgres store: %v", err)
		}
		migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := pg.Migrate(migrateCtx); err != nil {
			pg.Close()
			log.Fatalf("failed to migrate postgres schema: %v", err)
		}
		log.Printf("using postgres store")
		return backend{users: pg.Users(), tokens: pg.LoginTokens(), reminders: pg.Reminders(), close: pg.Close}

	case config.StoreDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			log.Fatalf("failed to init dynamodb client: %v", err)
		}
		// Creates the tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		log.Printf("using dynamodb store")
		return backend{
			users:     dynamo.NewUserRepo(client, cfg.DynamoTables.Users),
			tokens:    dynamo.NewLoginTokenRepo(client, cfg.DynamoTables.LoginTokens),
			reminders: dynamo.NewReminderRepo(client, cfg.DynamoTables.Reminders, cfg.DynamoTables.Users),
		}

	case config.StoreMemory:
		st := memory.NewStore()
		log.Printf("using memory store (empty, users must be onboarded through another process)")
		return backend{users: st.Users(), tokens: st.LoginTokens(), reminders: st.Reminders()}

	default:
		log.Fatalf("unknown STORE_BACKEND %q", cfg.StoreBackend)
		return backend{}
	}
}

func openSender(ctx context.Context, cfg *config.Config) sender {
	switch cfg.MessagingTransport {
	case config.TransportSNS:
		s, err := sns.NewSender(ctx, cfg)
		if err != nil {
			log.Fatalf("SNS sender not available: %v", err)
		}
		return s
	case config.TransportWhatsApp:
		return whatsapp.NewClient(cfg.WhatsApp)
	default:
		log.Fatalf("unknown MESSAGING_TRANSPORT %q", cfg.MessagingTransport)
		return nil
	}
}

func runTokenCleanupLoop(ctx context.Context, svc auth.Service, interval time.Duration) {
	runOnce := func() {
		ctxCleanup, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		n, err := svc.CleanupExpiredTokens(ctxCleanup)
		if err != nil {
			log.Printf("login token cleanup failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("login token cleanup removed %d tokens", n)
		}
	}

	runOnce()

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			runOnce()
		}
	}
}
