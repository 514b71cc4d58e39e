package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"letterdesk/docs"
	"letterdesk/internal/audit"
	"letterdesk/internal/auth"
	"letterdesk/internal/cache"
	"letterdesk/internal/config"
	"letterdesk/internal/db"
	"letterdesk/internal/events"
	"letterdesk/internal/handler"
	"letterdesk/internal/logger"
	"letterdesk/internal/repository"
	"letterdesk/internal/router"
	"letterdesk/internal/service"
)

// @title Letterdesk API
// @version 1.0
// @description Letter workflow and user administration API with CSV bulk import and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	appLog := logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("database init")
	}

	if cfg.ResetDB {
		log.Warn().Msg("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			log.Fatal().Err(err).Msg("reset database")
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Warn().Err(err).Msg("redis unreachable, running without cache")
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQURL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQURL)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, events disabled")
		} else {
			publisher = rabbit
		}
	}
	defer publisher.Close()

	auditLog := audit.New(appLog)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	officeRepo := repository.NewOfficeRepository(gormDB)
	departmentRepo := repository.NewDepartmentRepository(gormDB)
	staffRepo := repository.NewStaffRepository(gormDB)
	letterTypeRepo := repository.NewLetterTypeRepository(gormDB)
	templateRepo := repository.NewTemplateRepository(gormDB)
	letterRepo := repository.NewLetterRepository(gormDB)
	activityRepo := repository.NewActivityRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, cfg.BcryptCost)
	userService := service.NewUserService(userRepo, cacheClient, auditLog, cfg.BcryptCost)
	importService := service.NewImportService(userRepo, cacheClient, publisher, auditLog, cfg.BcryptCost)
	templateService := service.NewTemplateService(templateRepo, letterTypeRepo)
	letterService := service.NewLetterService(letterRepo, templateRepo, activityRepo, publisher, auditLog)
	defer letterService.Close()

	if cfg.AdminEmail != "" {
		admin, created, err := userService.EnsureAdmin(context.Background(), cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin")
		}
		if created {
			log.Info().Uint("user_id", admin.ID).Msg("bootstrap admin created")
		}
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService),
		User:       handler.NewUserHandler(userService, importService, cfg.ImportMaxBytes),
		Office:     handler.NewDirectoryHandler(service.NewOfficeService(officeRepo)),
		Department: handler.NewDirectoryHandler(service.NewDepartmentService(departmentRepo, officeRepo)),
		Staff:      handler.NewDirectoryHandler(service.NewStaffService(staffRepo, officeRepo, departmentRepo)),
		LetterType: handler.NewDirectoryHandler(service.NewLetterTypeService(letterTypeRepo)),
		Template:   handler.NewTemplateHandler(templateService),
		Letter:     handler.NewLetterHandler(letterService),
	}, jwtService, tokenStore, service.NewUserLookup(userRepo, cacheClient))

	addr := ":" + cfg.ServerPort
	go func() {
		log.Info().Str("addr", addr).Str("swagger", "/swagger/index.html").Msg("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
