package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/brokerdesk/backoffice/backend/internal/config"
	"github.com/brokerdesk/backoffice/backend/internal/identity"
	"github.com/brokerdesk/backoffice/backend/internal/lifecycle"
	"github.com/brokerdesk/backoffice/backend/internal/outbox"
	"github.com/brokerdesk/backoffice/backend/internal/repository"
	"github.com/brokerdesk/backoffice/backend/internal/seed"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var opts seed.Options

	flag.IntVar(&opts.Offices, "offices", 1, "number of offices to create")
	flag.IntVar(&opts.AdvisorsPerOffice, "advisors", 3, "advisors per office")
	flag.IntVar(&opts.ClientsPerAdvisor, "clients", 5, "clients per advisor")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("cannot load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	opts.Password = cfg.Seed.Password
	opts.EmailDomain = cfg.Email.UserDomain

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("cannot create database pool", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("cannot reach database", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: dbpool}), &gorm.Config{})
	if err != nil {
		logger.Error("cannot open outbox store", "error", err)
		return
	}

	var provider identity.Provider
	switch cfg.Identity.Provider {
	case "remote":
		provider = identity.NewRemoteProvider(cfg.Identity.BaseURL, cfg.Identity.SecretKey, time.Duration(cfg.Identity.RequestTimeout)*time.Second)
	default:
		// seeded accounts are not mailed
		provider = identity.NewLocalProvider(dbpool, identity.LocalOptions{
			QueryTimeout:            time.Duration(cfg.Database.QueryTimeout) * time.Second,
			PasswordMinLength:       cfg.Identity.PasswordMinLength,
			GeneratedPasswordLength: cfg.Identity.GeneratedPasswordLength,
		})
	}

	coordinator, err := lifecycle.New(repo, provider,
		lifecycle.WithOutbox(outbox.NewGormRepository(gdb, cfg.Outbox.MaxRetries)),
		lifecycle.WithLogger(logger),
	)
	if err != nil {
		logger.Error("cannot create lifecycle coordinator", "error", err)
		os.Exit(1)
	}

	sum, err := seed.New(coordinator, repo, logger).Run(context.Background(), opts)
	if err != nil {
		logger.Error("seeding stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("seeding finished", "offices", sum.Offices, "advisors", sum.Advisors, "clients", sum.Clients, "failed", sum.Failed)
}
