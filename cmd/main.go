package main

import (
	"context"
	"errors"
	"fmt"
	"geochat/auth"
	"geochat/domain"
	"geochat/infrastructure/http/server"
	"geochat/infrastructure/realtime"
	"geochat/internal"
	"geochat/mailer"
	"geochat/repositories"
	"geochat/runtime"
	"geochat/runtime/workers"
	"geochat/services"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/database"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const (
	debugPort     = 8081
	debugEndpoint = "/inspect"
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "geochat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until a signal or a server failure.
// Returning instead of exiting lets the deferred cleanups run.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env is not an error, the environment may already be set
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	if logger.Enabled(ctx, slog.LevelDebug) {
		url := fmt.Sprintf("http://localhost:%d%s", debugPort, debugEndpoint)
		logger.Info("Debug Badger inspector available", "url", url)
		database.StartDebugServer(db, debugPort, debugEndpoint, inspectMapper)
	}

	// 3. Repositories
	messageRepository := repositories.NewMessageRepository(db, logger)
	userRepository, err := repositories.NewUserRepository(db, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("user repository: %w", err)
	}
	defer func() {
		if err := userRepository.Close(); err != nil {
			logger.Warn("Releasing user sequence failed", "error", err)
		}
	}()
	// Expiry is checked against OTP_LIFETIME, the TTL only collects leftovers
	otpRepository := repositories.NewOTPRepository(db, 2*config.OTPLifetime)

	// 4. Realtime pipeline
	registry := runtime.NewRegistry()
	router := workers.NewEventFanout(logger, registry, config.SinkTimeout)
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	coordinator := runtime.NewCoordinator(
		logger, supervisor, router, messageRepository, userRepository,
		config.NumberOfWorkers, config.BufferSize,
	)
	messageRepository.Subscribe(coordinator)
	if config.MetricInterval > 0 {
		supervisor.Add(workers.NewChannelCapacityWorker(
			logger, coordinator.Lanes(), registry,
			config.MetricInterval, config.LowCapacityThreshold,
		))
	}

	// 5. Services
	tokens := auth.NewTokenIssuer(config.JWTSecret, config.AccessTokenDuration, config.RefreshTokenDuration)
	mail := mailer.New(config.EmailBackend, config.SMTPConfig(), logger)
	authService := services.NewAuthService(
		logger, userRepository, otpRepository, mail, tokens,
		config.OTPLifetime, config.AdminEmailList(),
	)
	userService := services.NewUserService(userRepository)
	chatService := services.NewChatService(messageRepository, userRepository, config.HistorySize)

	// 6. HTTP & WebSocket
	socket := realtime.NewHandler(ctx, logger, domain.ChatRoom, registry, coordinator, config.SessionConfig())
	api := server.New(logger, authService, userService, chatService, tokens, registry, socket, config.RequestTimeout)
	httpServer := &http.Server{
		Addr:              config.Address(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)

	go coordinator.Start(ctx)

	go func() {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	code := exitOK
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		code = exitRuntime
	}

	// 8. Graceful shutdown
	// Hijacked sockets are not tracked by Shutdown, they end with the base context
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	stop()
	socket.Wait()
	coordinator.Stop()
	logger.Info("Program stopped cleanly")

	return code, runErr
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}

func inspectMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	mapped := internal.GeochatMapper(key, val)
	row.Type = mapped.Type
	row.Detail = mapped.Detail
	row.EntityID = mapped.EntityID
	row.Timestamp = mapped.Timestamp
	return row
}
