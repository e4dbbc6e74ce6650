package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/commercekit/loyalty-backend/api/routes"
	"github.com/commercekit/loyalty-backend/internal/config"
	"github.com/commercekit/loyalty-backend/internal/handlers"
	"github.com/commercekit/loyalty-backend/internal/repositories"
	"github.com/commercekit/loyalty-backend/internal/repositories/memory"
	mongorepo "github.com/commercekit/loyalty-backend/internal/repositories/mongodb"
	"github.com/commercekit/loyalty-backend/internal/services"
	mongodb "github.com/commercekit/loyalty-backend/pkg/mongodb"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var (
		accountRepo   repositories.AccountRepository
		ledgerRepo    repositories.TransactionRepository
		adminUserRepo repositories.AdminUserRepository
		txRunner      repositories.TxRunner
	)

	if cfg.MongoDB.UseInMemory {
		slog.Warn("Using in-memory repositories; data will not survive a restart")
		accountRepo = memory.NewAccountRepository()
		ledgerRepo = memory.NewTransactionRepository()
		adminUserRepo = memory.NewAdminUserRepository()
		txRunner = memory.NewTxRunner()
	} else {
		mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				slog.Error("Error disconnecting from MongoDB", "error", err)
			}
		}()

		db := mongoClient.Database(cfg.MongoDB.Database)
		accountRepo = mongorepo.NewAccountRepository(db)
		ledgerRepo = mongorepo.NewTransactionRepository(db)
		adminUserRepo = mongorepo.NewAdminUserRepository(db)
		txRunner = mongoClient
	}

	// Indexes back the customerId uniqueness and the per-order idempotency
	// guarantee; refuse to start without them.
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	if err := accountRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create account indexes: %v", err)
	}
	if err := ledgerRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create ledger indexes: %v", err)
	}
	cancel()

	// Initialize services
	loyaltyService := services.NewLoyaltyService(accountRepo, ledgerRepo, txRunner)
	authService := services.NewAuthService(adminUserRepo, cfg)

	seedAdminUser(authService, adminUserRepo, cfg)

	// Initialize handlers
	loyaltyHandler := handlers.NewLoyaltyHandler(loyaltyService)
	authHandler := handlers.NewAuthHandler(authService)

	handlerDeps := routes.HandlerDependencies{
		AuthHandler:    authHandler,
		LoyaltyHandler: loyaltyHandler,
	}

	router := routes.SetupRouter(cfg, handlerDeps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	slog.Info("Server starting", "port", cfg.Server.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	slog.Info("Server exiting")
}

// seedAdminUser creates the initial admin console operator when configured
// and not already present.
func seedAdminUser(authService services.AuthService, adminUserRepo repositories.AdminUserRepository, cfg *config.Config) {
	if cfg.Admin.SeedEmail == "" || cfg.Admin.SeedPassword == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := adminUserRepo.FindByEmail(ctx, cfg.Admin.SeedEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		slog.Error("Failed to check for seed admin user", "error", err)
		return
	}

	if _, err := authService.CreateAdminUser(ctx, "Admin", "User", cfg.Admin.SeedEmail, cfg.Admin.SeedPassword, "admin"); err != nil {
		slog.Error("Failed to seed admin user", "error", err)
		return
	}
	slog.Info("Seeded admin user", "email", cfg.Admin.SeedEmail)
}
