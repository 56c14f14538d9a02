package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"sales-record-api/internal/config"
	"sales-record-api/internal/database"
	"sales-record-api/internal/handler"
	"sales-record-api/internal/repository"
	"sales-record-api/internal/router"
	"sales-record-api/internal/service"
)

func main() {
	log := logrus.New()

	app := &cli.App{
		Name:  "salesapi",
		Usage: "inventory/sales record-keeping API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to the YAML config file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API server",
				Action: func(c *cli.Context) error {
					return serve(c.Context, log, c.String("config"))
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending database migrations",
				Action: func(c *cli.Context) error {
					return runMigrations(c.Context, log, c.String("config"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("exiting")
	}
}

func configure(log *logrus.Logger, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return cfg, nil
}

func serve(ctx context.Context, log *logrus.Logger, configPath string) error {
	cfg, err := configure(log, configPath)
	if err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.WithField("driver", cfg.Database.Driver).Info("database connected")

	customerRepo := repository.NewCustomerRepository(db, log)
	productRepo := repository.NewProductRepository(db, log)
	orderStore := repository.NewOrderStore(db, log)
	orderService := service.NewOrderService(service.NewStore(orderStore), log)

	metrics := handler.NewMetrics()
	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: router.New(log, router.Handlers{
			Customers:    handler.NewCustomerHandler(customerRepo, log),
			Products:     handler.NewProductHandler(productRepo, log),
			Transactions: handler.NewTransactionHandler(orderService, log),
			Health:       handler.NewHealthHandler(db),
			Metrics:      metrics,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	errs := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.Server.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errs <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errs:
		return err
	case sig := <-stop:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runMigrations(ctx context.Context, log *logrus.Logger, configPath string) error {
	cfg, err := configure(log, configPath)
	if err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.Database.Driver); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}
