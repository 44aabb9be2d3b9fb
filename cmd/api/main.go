package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"fixhome/admin"
	"fixhome/auth"
	"fixhome/config"
	"fixhome/db"
	"fixhome/job"
	"fixhome/payment"
	"fixhome/reward"
	"fixhome/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pool, err := db.NewPool(ctx, cfg.DB.DSN())
	if err != nil {
		log.Fatalf("bootstrap database pool: %v", err)
	}
	defer pool.Close()

	if cfg.DB.RunMigrationsOnStart {
		if err := db.Migrate(ctx, pool); err != nil {
			log.Fatalf("run migrations: %v", err)
		}
	}

	authService := auth.NewService(auth.NewRepository(pool), cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	workerService := worker.NewService(worker.NewRepository(pool))
	rewardService := reward.NewService(reward.NewRepository(pool), reward.Policy{
		ThresholdCents: cfg.Rewards.ThresholdCents,
		Percent:        cfg.Rewards.Percent,
		ExpiryMonths:   cfg.Rewards.ExpiryMonths,
	})
	jobService := job.NewService(pool, job.NewRepository(pool), workerService, rewardService)
	paymentService := payment.NewService(pool, payment.NewRepository(pool), rewardService)
	adminService := admin.NewService(admin.NewRepository(pool))

	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		if _, err := authService.SeedAdmin(ctx, email, os.Getenv("ADMIN_PASSWORD")); err != nil {
			log.Fatalf("seed admin account: %v", err)
		}
	}

	srv := &Server{
		authService:    authService,
		jobService:     jobService,
		workerService:  workerService,
		paymentService: paymentService,
		rewardService:  rewardService,
		adminService:   adminService,
	}

	log.Printf("listening on %s", cfg.HTTP.Addr)
	if err := http.ListenAndServe(cfg.HTTP.Addr, srv.routes()); err != nil {
		log.Fatalf("http server: %v", err)
	}
}
