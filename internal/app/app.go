// Package app wires the sync engine together: local store, remote client,
// per-entity adapters, wallet, orchestrator and the account change watcher,
// and runs the periodic sync loop until shutdown.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/movesync/internal/config"
	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/remote"
	"github.com/dmitrijs2005/movesync/internal/repositories/accounts"
	"github.com/dmitrijs2005/movesync/internal/repositories/balances"
	"github.com/dmitrijs2005/movesync/internal/repositories/drivers"
	"github.com/dmitrijs2005/movesync/internal/repositories/payments"
	"github.com/dmitrijs2005/movesync/internal/repositories/rentals"
	"github.com/dmitrijs2005/movesync/internal/repositories/vehicles"
	"github.com/dmitrijs2005/movesync/internal/storage"
	"github.com/dmitrijs2005/movesync/internal/syncer"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	client  *remote.Client
	orch    *syncer.Orchestrator
	watcher *syncer.AccountWatcher
	rentals rentals.Repository
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	if cfg.UserEmail == "" {
		return nil, fmt.Errorf("user email is required (flag -u or config)")
	}

	db, err := storage.Open(ctx, cfg.LocalDSN)
	if err != nil {
		return nil, fmt.Errorf("local store init error: %w", err)
	}

	client, err := remote.New(cfg.RemoteURL, cfg.CollectionPrefix, logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("remote store init error: %w", err)
	}

	names := make([]string, 0, len(models.AllEntityTypes))
	for _, et := range models.AllEntityTypes {
		names = append(names, string(et))
	}
	if err := client.EnsureCollections(ctx, names); err != nil {
		_ = db.Close()
		_ = client.Close()
		return nil, fmt.Errorf("remote collections init error: %w", err)
	}

	accountRepo := accounts.NewSQLiteRepository(db)
	balanceRepo := balances.NewSQLiteRepository(db)
	txnRepo := balances.NewSQLiteTxnRepository(db)
	driverRepo := drivers.NewSQLiteRepository(db)
	rentalRepo := rentals.NewSQLiteRepository(db)
	secondaryRepo := rentals.NewSQLiteSecondaryRepository(db)
	paymentRepo := payments.NewSQLiteRepository(db)
	incomeRepo := payments.NewSQLiteIncomeRepository(db)
	vehicleRepo := vehicles.NewSQLiteRepository(db)
	personalRepo := vehicles.NewSQLitePersonalRepository(db)

	resolver := syncer.NewResolver()
	wallet := syncer.NewWallet(db, logger)

	col := func(et models.EntityType) remote.Collection {
		return client.Collection(string(et))
	}

	accountAdapter := syncer.NewAccountAdapter(accountRepo, col(models.EntityAccount), resolver, logger)
	adapters := []syncer.Adapter{
		accountAdapter,
		syncer.NewBalanceAdapter(balanceRepo, col(models.EntityBalance), logger),
		syncer.NewTxnAdapter(txnRepo, col(models.EntityBalanceTransaction), logger),
		syncer.NewDriverAdapter(driverRepo, col(models.EntityDriverProfile), resolver, logger),
		syncer.NewRentalAdapter(rentalRepo, col(models.EntityRental), resolver, logger),
		syncer.NewSecondaryRentalAdapter(secondaryRepo, col(models.EntitySecondaryRental), resolver, logger),
		syncer.NewPaymentAdapter(paymentRepo, col(models.EntityPayment), resolver, wallet, logger),
		syncer.NewIncomeAdapter(incomeRepo, col(models.EntityIncomeRecord), resolver, wallet, logger),
		syncer.NewVehicleAdapter(vehicleRepo, rentalRepo, col(models.EntityVehicle), resolver, logger),
		syncer.NewPersonalVehicleAdapter(personalRepo, col(models.EntityPersonalVehicle), resolver, logger),
	}

	nameResolver := syncer.NewNameResolver(accountRepo, col(models.EntityAccount), logger)
	orch := syncer.NewOrchestrator(adapters, nameResolver, logger)
	watcher := syncer.NewAccountWatcher(accountAdapter, col(models.EntityAccount), logger)

	return &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		client:  client,
		orch:    orch,
		watcher: watcher,
		rentals: rentalRepo,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// syncPass runs one orchestrated pass for the configured user. Payments are
// scoped by rental id, so they are synced per locally known rental after the
// email-scoped families.
func (app *App) syncPass(ctx context.Context) error {
	email := app.config.UserEmail

	types := make([]models.EntityType, 0, len(models.AllEntityTypes))
	for _, et := range models.AllEntityTypes {
		if et != models.EntityPayment {
			types = append(types, et)
		}
	}
	if err := app.orch.SyncScope(ctx, email, types...); err != nil {
		return err
	}

	rr, err := app.rentals.GetForScope(ctx, email)
	if err != nil {
		return err
	}
	for _, r := range rr {
		if err := app.orch.SyncScope(ctx, r.ID, models.EntityPayment); err != nil {
			return err
		}
	}
	return nil
}

func (app *App) runSyncLoop(ctx context.Context) {
	app.logger.Info(ctx, "sync loop started",
		"user", app.config.UserEmail, "interval", app.config.SyncInterval)

	ticker := time.NewTicker(app.config.SyncInterval)
	defer ticker.Stop()

	for {
		if err := app.syncPass(ctx); err != nil {
			app.logger.Error(ctx, "sync pass failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runSyncLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.watcher.Run(ctx)
	}()

	wg.Wait()

	if err := app.client.Close(); err != nil {
		app.logger.Error(ctx, "failed to close remote client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "failed to close local store", "error", err)
	}
}
