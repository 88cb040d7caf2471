package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alsalam/hospital-api/internal/config"
	apptH "github.com/alsalam/hospital-api/internal/handler/appointment"
	authH "github.com/alsalam/hospital-api/internal/handler/auth"
	billingH "github.com/alsalam/hospital-api/internal/handler/billing"
	clinicalH "github.com/alsalam/hospital-api/internal/handler/clinical"
	facilityH "github.com/alsalam/hospital-api/internal/handler/facility"
	healthH "github.com/alsalam/hospital-api/internal/handler/health"
	patientH "github.com/alsalam/hospital-api/internal/handler/patient"
	rbacH "github.com/alsalam/hospital-api/internal/handler/rbac"
	reportH "github.com/alsalam/hospital-api/internal/handler/report"
	userH "github.com/alsalam/hospital-api/internal/handler/user"
	"github.com/alsalam/hospital-api/internal/middleware"
	"github.com/alsalam/hospital-api/internal/repository/postgres"
	"github.com/alsalam/hospital-api/internal/router"
	apptsvc "github.com/alsalam/hospital-api/internal/service/appointment"
	authsvc "github.com/alsalam/hospital-api/internal/service/auth"
	"github.com/alsalam/hospital-api/internal/service/authz"
	billingsvc "github.com/alsalam/hospital-api/internal/service/billing"
	clinicalsvc "github.com/alsalam/hospital-api/internal/service/clinical"
	facilitysvc "github.com/alsalam/hospital-api/internal/service/facility"
	patientsvc "github.com/alsalam/hospital-api/internal/service/patient"
	rbacsvc "github.com/alsalam/hospital-api/internal/service/rbac"
	reportsvc "github.com/alsalam/hospital-api/internal/service/report"
	usersvc "github.com/alsalam/hospital-api/internal/service/user"
	"github.com/alsalam/hospital-api/internal/statscache"
	"github.com/alsalam/hospital-api/pkg/auth"
	"github.com/alsalam/hospital-api/pkg/logger"
	"github.com/alsalam/hospital-api/pkg/security"
)

func main() {
	log := logger.NewLogger(nil)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err, "failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	rbacRepo := postgres.NewRBACRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	apptRepo := postgres.NewAppointmentRepository(db)
	visitRepo := postgres.NewVisitRepository(db)
	facilityRepo := postgres.NewFacilityRepository(db)
	billingRepo := postgres.NewBillingRepository(db)
	reportRepo := postgres.NewReportRepository(db)

	hasher := security.NewBcryptHasher(0)
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        cfg.JWT.Expiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
	})
	cache := statscache.New(cfg.Cache.StatsTTL, nil)

	authService := authsvc.NewService(userRepo, hasher, jwtSvc)
	authzService := authz.NewService(rbacRepo)
	userService := usersvc.NewService(userRepo, rbacRepo, apptRepo, hasher)
	rbacService := rbacsvc.NewService(rbacRepo, userRepo)
	patientService := patientsvc.NewService(patientRepo, cache)
	apptService := apptsvc.NewService(apptRepo, visitRepo, patientRepo, userRepo, cache)
	clinicalService := clinicalsvc.NewService(visitRepo, apptRepo, cache)
	facilityService := facilitysvc.NewService(facilityRepo, patientRepo, cache)
	billingService := billingsvc.NewService(billingRepo, patientRepo, cache)
	reportService := reportsvc.NewService(reportRepo, cache)

	authMW := middleware.NewAuthMiddleware(authService, authzService)

	r := router.New(
		router.Config{
			Mode:           cfg.Server.Mode,
			RequestTimeout: cfg.Server.RequestTimeout,
			CORS:           corsConfig(cfg.Server.AllowedOrigins),
			RateLimit: middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				Burst:             cfg.RateLimit.Burst,
			},
		},
		log,
		authMW,
		router.Handlers{
			Health:      healthH.NewHandler(db),
			Auth:        authH.NewHandler(authService),
			User:        userH.NewHandler(userService),
			RBAC:        rbacH.NewHandler(rbacService),
			Patient:     patientH.NewHandler(patientService),
			Appointment: apptH.NewHandler(apptService),
			Clinical:    clinicalH.NewHandler(clinicalService),
			Facility:    facilityH.NewHandler(facilityService),
			Billing:     billingH.NewHandler(billingService),
			Report:      reportH.NewHandler(reportService),
		},
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}

func corsConfig(origins []string) middleware.CORSConfig {
	cfg := middleware.DefaultCORSConfig()
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	}
	return cfg
}
