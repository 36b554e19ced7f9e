package main

import (
	"context"
	cryptorand "crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carehub/carehub/internal/config"
	"github.com/carehub/carehub/internal/domain/appointment"
	"github.com/carehub/carehub/internal/domain/audit"
	"github.com/carehub/carehub/internal/domain/doctor"
	"github.com/carehub/carehub/internal/domain/hospital"
	"github.com/carehub/carehub/internal/domain/otp"
	"github.com/carehub/carehub/internal/domain/prescription"
	"github.com/carehub/carehub/internal/domain/recommendation"
	"github.com/carehub/carehub/internal/domain/report"
	"github.com/carehub/carehub/internal/domain/user"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/blobstore"
	"github.com/carehub/carehub/internal/platform/db"
	"github.com/carehub/carehub/internal/platform/middleware"
	"github.com/carehub/carehub/internal/platform/recommend"
	"github.com/carehub/carehub/internal/platform/sms"
	"github.com/carehub/carehub/pkg/apperr"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carehub-server",
		Short: "CareHub hospital administration API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an ADMIN user",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")
			email, _ := cmd.Flags().GetString("email")
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			auditSvc := audit.NewService(audit.NewRepoPG(pool), logger)
			users := user.NewService(user.NewRepoPG(pool), nil, auditSvc)

			u, err := users.CreateAdmin(ctx, username, password, email)
			if err != nil {
				return err
			}
			fmt.Printf("Admin user created: %s (%s)\n", u.Username, u.ID)
			return nil
		},
	}
	createCmd.Flags().String("username", "", "Admin username")
	createCmd.Flags().String("password", "", "Admin password")
	createCmd.Flags().String("email", "", "Admin email")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	secret := cfg.JWTSecret
	if secret == "" {
		// Development only; Validate rejects a missing secret elsewhere.
		buf := make([]byte, 32)
		if _, err := cryptorand.Read(buf); err != nil {
			logger.Fatal().Err(err).Msg("failed to generate dev jwt secret")
		}
		secret = hex.EncodeToString(buf)
		logger.Warn().Msg("JWT_SECRET not set, using an ephemeral development secret")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	issuer := auth.NewTokenIssuer([]byte(secret), time.Duration(cfg.JWTTTLHours)*time.Hour)

	// Shared infrastructure
	auditSvc := audit.NewService(audit.NewRepoPG(pool), logger)
	blobs := blobstore.NewInMemoryBlobStore(cfg.UploadMaxBytes)

	var sender sms.Sender
	if cfg.SMSProviderURL != "" {
		sender = sms.NewHTTPSender(cfg.SMSProviderURL, cfg.SMSProviderKey)
	} else {
		sender = &sms.LogSender{Logger: logger}
	}

	recClient := recommend.NewClient(cfg.GroqAPIKey, cfg.GroqModel,
		recommend.NewMemoryCache(time.Hour), logger)

	// Repositories
	userRepo := user.NewRepoPG(pool)
	hospitalRepo := hospital.NewRepoPG(pool)
	departmentRepo := hospital.NewDepartmentRepoPG(pool)
	doctorRepo := doctor.NewRepoPG(pool)
	otpRepo := otp.NewRepoPG(pool)
	appointmentRepo := appointment.NewRepoPG(pool)
	prescriptionRepo := prescription.NewRepoPG(pool)
	reportRepo := report.NewRepoPG(pool)
	recommendationRepo := recommendation.NewRepoPG(pool)

	// Services
	userSvc := user.NewService(userRepo, issuer, auditSvc)
	hospitalSvc := hospital.NewService(hospitalRepo, departmentRepo, userRepo, auditSvc)
	doctorSvc := doctor.NewService(doctorRepo, hospitalSvc, departmentRepo, userRepo, auditSvc)
	otpSvc := otp.NewService(otpRepo, userRepo, sender, auditSvc, otp.Policy{
		Length:      cfg.OTPLength,
		Expiry:      time.Duration(cfg.OTPExpiryMinutes) * time.Minute,
		Grant:       time.Duration(cfg.OTPGrantMinutes) * time.Minute,
		IssueLimit:  cfg.OTPIssueLimit,
		IssueWindow: time.Duration(cfg.OTPIssueWindowMinutes) * time.Minute,
	}, logger)
	appointmentSvc := appointment.NewService(appointmentRepo, hospitalRepo, departmentRepo, doctorRepo)
	prescriptionSvc := prescription.NewService(prescriptionRepo, doctorRepo, userRepo, otpSvc, blobs)
	reportSvc := report.NewService(reportRepo, userRepo, otpSvc, prescriptionSvc, blobs)
	recommendationSvc := recommendation.NewService(recommendationRepo, recClient, logger)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.UploadMaxBytes))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	e.GET("/health", db.HealthHandler(pool))

	// Route groups: public carries no token, api requires one.
	public := e.Group("/api/v1")
	api := e.Group("/api/v1", auth.Middleware(issuer))

	user.NewHandler(userSvc).RegisterRoutes(public, api)
	hospital.NewHandler(hospitalSvc).RegisterRoutes(public, api)
	doctor.NewHandler(doctorSvc).RegisterRoutes(api)
	otp.NewHandler(otpSvc).RegisterRoutes(public, api)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(api)
	report.NewHandler(reportSvc).RegisterRoutes(api)
	recommendation.NewHandler(recommendationSvc).RegisterRoutes(api)
	audit.NewHandler(auditSvc).RegisterRoutes(api)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
