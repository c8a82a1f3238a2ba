// The scheduler sweeps every loan on a cron and recomputes its delinquency
// status. The billing service itself only recomputes on payment creation;
// this binary is the external caller that keeps statuses fresh between
// payments.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/arifwid/loan-billing/internal/config"
	"github.com/arifwid/loan-billing/internal/repository"
	"github.com/arifwid/loan-billing/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to build logger: " + err.Error())
	}
	defer logger.Sync()

	db, err := repository.Connect(&cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	statusRepo := repository.NewStatusRepository(db)

	billingService := service.NewBillingService(loanRepo, paymentRepo, statusRepo, redisClient, logger, cfg.Cache.StatusTTL)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		logger.Fatal("invalid scheduler timezone", zap.Error(err))
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.CronSpec, func() {
		logger.Info("running delinquency sweep")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if err := billingService.RefreshAllStatuses(ctx); err != nil {
			logger.Error("delinquency sweep failed", zap.Error(err))
			return
		}

		logger.Info("delinquency sweep finished")
	})
	if err != nil {
		logger.Fatal("failed to schedule delinquency sweep", zap.Error(err))
	}

	c.Start()
	logger.Info("scheduler started", zap.String("cron_spec", cfg.Scheduler.CronSpec))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down scheduler")
	<-c.Stop().Done()
	logger.Info("scheduler stopped")
}
