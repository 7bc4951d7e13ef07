package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	cartservice "storefront/pkg/cart/domain/service"
	checkoutservice "storefront/pkg/checkout/domain/service"
	"storefront/pkg/infrastructure/catalog"
	"storefront/pkg/infrastructure/config"
	"storefront/pkg/infrastructure/eventlog"
	"storefront/pkg/infrastructure/messenger"
	"storefront/pkg/infrastructure/transport"
	inventorymodel "storefront/pkg/inventory/domain/model"
	ledgerservice "storefront/pkg/inventory/domain/service"
	sessionmodel "storefront/pkg/session/domain/model"
	appservice "storefront/pkg/storefront/application/service"
	storefrontmodel "storefront/pkg/storefront/domain/model"
	storefrontservice "storefront/pkg/storefront/domain/service"
)

const appID = "storefront"

func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:   appID,
		Usage:  "chat-driven storefront with an inventory reservation engine",
		Action: runServer,
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("service terminated")
	}
}

func runServer(_ *cli.Context) error {
	cfg, err := config.Parse(appID)
	if err != nil {
		return err
	}

	store, err := newCatalogStore(cfg)
	if err != nil {
		return err
	}

	dispatcher := eventlog.NewDispatcher()
	registry := sessionmodel.NewRegistry()
	roster := storefrontmodel.NewRoster(cfg.SuperAdminID)
	msgr := messenger.NewHTTPMessenger(cfg.OutboundURL)

	ledger := ledgerservice.NewLedgerService(store, dispatcher)
	carts := cartservice.NewCartService(ledger, dispatcher)
	rosterSvc := storefrontservice.NewRosterService(roster, dispatcher)
	lifecycle := storefrontservice.NewLifecycleService(roster, registry, carts, msgr, dispatcher)
	checkout := checkoutservice.NewCheckoutService(carts, rosterSvc, msgr, dispatcher)

	bot := appservice.NewBot(
		registry, ledger, carts, checkout, lifecycle, rosterSvc,
		msgr, catalog.JSONImporter{}, cfg.CatalogPath,
	)

	log.WithFields(log.Fields{
		"address": cfg.ServeRESTAddress,
		"driver":  cfg.CatalogDriver,
	}).Info("starting server")

	killSignalChan := getKillSignalChan()
	srv := startServer(cfg.ServeRESTAddress, transport.Router(bot))

	waitForKillSignal(killSignalChan)
	return srv.Shutdown(context.Background())
}

func newCatalogStore(cfg *config.Config) (inventorymodel.CatalogStore, error) {
	switch cfg.CatalogDriver {
	case "mysql":
		if err := catalog.Migrate(cfg.DatabaseDSN); err != nil {
			return nil, err
		}
		db, err := sqlx.Connect("mysql", cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return catalog.NewMySQLStore(db), nil
	default:
		if _, err := os.Stat(cfg.CatalogPath); os.IsNotExist(err) {
			log.WithField("path", cfg.CatalogPath).Warn("catalog file not found, starting with an empty catalog")
		}
		return catalog.NewJSONStore(cfg.CatalogPath), nil
	}
}

func startServer(address string, router http.Handler) *http.Server {
	srv := &http.Server{Addr: address, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()
	return srv
}

func getKillSignalChan() chan os.Signal {
	osKillSignalChan := make(chan os.Signal, 1)
	signal.Notify(osKillSignalChan, os.Interrupt, syscall.SIGTERM)
	return osKillSignalChan
}

func waitForKillSignal(killSignalChan <-chan os.Signal) {
	killSignal := <-killSignalChan
	switch killSignal {
	case os.Interrupt:
		log.Info("got SIGINT...")
	case syscall.SIGTERM:
		log.Info("got SIGTERM...")
	}
}
