package cli

import (
	"bufio"
	"context"
	"log"
	"os"
	"time"

	"github.com/mkalvans/deductsync/internal/client/client"
	"github.com/mkalvans/deductsync/internal/client/config"
	"github.com/mkalvans/deductsync/internal/client/services"
	"github.com/mkalvans/deductsync/internal/logging"

	_ "modernc.org/sqlite"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config    *config.Config
	api       client.Client
	repos     *client.Repositories
	session   *services.SessionService
	lifecycle *services.LifecycleService
	sync      *services.SyncService
	pull      *services.PullService
	donations *services.DonationService
	charities *services.CharityService
	receipts  *services.ReceiptService
	Mode      Mode
	reader    *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	repos, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient := client.NewHTTPClient(c.ServerEndpointAddr)
	logger := logging.NewDefault()

	session := services.NewSessionService(apiClient, repos.Metadata, logger)
	lifecycle := services.NewLifecycleService(apiClient, repos, session, logger)
	session.SetUnauthenticatedHook(lifecycle.HandleUnauthenticated)
	syncSvc := services.NewSyncService(apiClient, repos, session, logger)

	app := &App{
		config:    c,
		api:       apiClient,
		repos:     repos,
		session:   session,
		lifecycle: lifecycle,
		sync:      syncSvc,
		pull:      services.NewPullService(apiClient, repos, session, logger),
		donations: services.NewDonationService(repos, session, syncSvc, logger),
		charities: services.NewCharityService(apiClient, repos, session, logger),
		receipts:  services.NewReceiptService(apiClient, repos, session, syncSvc, logger),
		reader:    bufio.NewReader(os.Stdin),
	}

	if err := lifecycle.RestoreToken(ctx); err != nil {
		log.Printf("error restoring session: %s", err.Error())
	}

	return app, nil
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
		if mode == ModeOnline {
			// Connectivity came back; flush whatever queued up offline.
			a.sync.TriggerDrain()
		}
	}
}

func (a *App) Run(ctx context.Context) {
	defer a.repos.DB.Close()
	defer a.api.Close()
	go a.sync.Run(ctx)
	a.Root(ctx)
}

func (a *App) isLoggedIn() bool {
	return a.api.Token() != ""
}

func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			err := a.api.Ping(pctx)
			cancel()

			if err != nil {
				if a.Mode == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.Mode != ModeOnline {
					a.setMode(ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
