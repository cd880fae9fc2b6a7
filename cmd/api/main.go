package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/kanvas-api/api/swagger"
	"github.com/noah-isme/kanvas-api/internal/handler"
	"github.com/noah-isme/kanvas-api/internal/repository"
	"github.com/noah-isme/kanvas-api/internal/router"
	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/cache"
	"github.com/noah-isme/kanvas-api/pkg/config"
	"github.com/noah-isme/kanvas-api/pkg/database"
	"github.com/noah-isme/kanvas-api/pkg/logger"
)

// @title Kanvas API
// @version 1.0.0
// @description Course offerings, waitlisted enrollment, assignments and grading.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Migrations.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to migrate database", zap.Error(err))
		}
	}

	redisClient := connectRedis(cfg, logr)
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	termRepo := repository.NewTermRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	offeringRepo := repository.NewOfferingRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	materialRepo := repository.NewMaterialRepository(db)

	var catalogCache *service.CacheService
	if redisClient != nil {
		catalogCache = service.NewCacheService(repository.NewCacheRepository(redisClient), metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		ResetTokenTTL:     cfg.Auth.ResetTokenTTL,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	termSvc := service.NewTermService(termRepo, logr)
	courseSvc := service.NewCourseService(courseRepo, catalogCache, validate, logr)
	offeringSvc := service.NewOfferingService(offeringRepo, courseRepo, validate, logr)
	eligibilitySvc := service.NewEligibilityService(offeringRepo, enrollmentRepo, logr)
	enrollmentSvc := service.NewEnrollmentService(offeringRepo, enrollmentRepo, eligibilitySvc, userRepo, metrics, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, offeringRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, assignmentRepo, enrollmentRepo, offeringRepo, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, offeringRepo, validate, logr)
	gradeSvc := service.NewGradeService(offeringRepo, assignmentRepo, enrollmentRepo, userRepo, userRepo, metrics, validate, logr)
	exportSvc := service.NewExportService(gradeSvc, assignmentSvc, logr)

	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc, cfg.Env == config.EnvProduction),
		User:       handler.NewUserHandler(userSvc),
		Term:       handler.NewTermHandler(termSvc),
		Course:     handler.NewCourseHandler(courseSvc),
		Offering:   handler.NewOfferingHandler(offeringSvc, eligibilitySvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Assignment: handler.NewAssignmentHandler(assignmentSvc, exportSvc),
		Submission: handler.NewSubmissionHandler(submissionSvc),
		Grade:      handler.NewGradeHandler(gradeSvc, exportSvc),
		Material:   handler.NewMaterialHandler(materialSvc),
		Metrics:    handler.NewMetricsHandler(metrics, db),
	}
	r := router.Setup(cfg, handlers, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("forced shutdown", zap.Error(err))
	}
	logr.Info("server stopped")
}

// connectRedis returns nil when redis is disabled or unreachable; the
// catalog then reads straight from postgres.
func connectRedis(cfg *config.Config, logr *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
		return nil
	}
	return client
}
