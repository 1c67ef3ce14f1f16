// Package server initializes and runs the quickstash backend. It wires the
// database, object storage, and application services together, runs schema
// migrations, and owns the expired-invitation sweeper and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/quickstash/internal/logging"
	"github.com/dmitrijs2005/quickstash/internal/server/blob"
	"github.com/dmitrijs2005/quickstash/internal/server/config"
	"github.com/dmitrijs2005/quickstash/internal/server/mail"
	"github.com/dmitrijs2005/quickstash/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/quickstash/internal/server/services"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager

	items       *services.ItemService
	files       *services.FileService
	invitations *services.InvitationService
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("repository init error: %w", err)
	}

	blobs := blob.NewS3Store(c)
	mailer := mail.NewLogMailer(logger)

	items := services.NewItemService(rm, blobs, logger)
	invitations := services.NewInvitationService(db, rm, mailer, logger, c.FrontendURL)
	files := services.NewFileService(db, rm, items, invitations, logger)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		items:       items,
		files:       files,
		invitations: invitations,
	}, nil
}

// Files exposes the file layer to the transport wiring.
func (app *App) Files() *services.FileService { return app.files }

// Invitations exposes the sharing subsystem to the transport wiring.
func (app *App) Invitations() *services.InvitationService { return app.invitations }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run migrates the schema, starts the expired-invitation sweeper, and blocks
// until the context is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app...")

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.invitations.RunSweeper(ctx, app.config.SweepInterval)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		return fmt.Errorf("db close error: %w", err)
	}

	return nil
}
