package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophsend/internal/client/client"
	"github.com/dmitrijs2005/gophsend/internal/client/config"
	"github.com/dmitrijs2005/gophsend/internal/client/models"
	"github.com/dmitrijs2005/gophsend/internal/client/oauth"
	"github.com/dmitrijs2005/gophsend/internal/client/services"
	"github.com/dmitrijs2005/gophsend/internal/client/storage"
	"github.com/dmitrijs2005/gophsend/internal/logging"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	store    *storage.LocalStore
	api      client.Client
	keys     *services.KeyManager
	auth     *services.AuthService
	files    *services.FileService
	fileList *services.FileListSync

	mu      sync.Mutex
	session *models.Session
	mode    Mode

	reader *bufio.Reader
	out    io.Writer
}

// NewApp opens the local store and wires the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	store, err := storage.Open(ctx, c.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	httpClient := &http.Client{}
	api := client.NewHTTPClient(c.ServiceURL, httpClient)

	auth := services.NewAuthService(store, logger)
	files := services.NewFileService(api, store, logger)

	return &App{
		config:   c,
		logger:   logger,
		store:    store,
		api:      api,
		keys:     services.NewKeyManager(store, oauth.NewClient(c.OAuth, httpClient), c.OAuth.KeyScope, logger),
		auth:     auth,
		files:    files,
		fileList: services.NewFileListSync(api, store, files, auth, logger),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

func (a *App) Close() error {
	return a.store.Close()
}

func (a *App) currentSession() *models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

func (a *App) setSession(s *models.Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}

func (a *App) isLoggedIn() bool {
	return a.currentSession().LoggedIn()
}

func (a *App) getMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.logger.Info(ctx, "switched mode", "mode", mode)
	}
}

// StartOnlineStatusWatcher pings the service every interval and tracks
// whether it is reachable.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		a.checkOnline(ctx)
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) checkOnline(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := a.api.Ping(pingCtx); err != nil {
		a.setMode(ctx, ModeOffline)
		return
	}
	a.setMode(ctx, ModeOnline)
}

// StartSyncLoop synchronises the file list every interval while the service
// is reachable.
func (a *App) StartSyncLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if a.getMode() != ModeOnline {
				continue
			}
			if _, err := a.sync(ctx); err != nil && ctx.Err() == nil {
				a.logger.Warn(ctx, "background sync failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// sync runs one file list synchronisation and reports a forced logout.
func (a *App) sync(ctx context.Context) (models.SyncResult, error) {
	session := a.currentSession()
	wasLoggedIn := session.LoggedIn()

	res, err := a.fileList.Sync(ctx, session)
	if err != nil {
		return res, err
	}
	if wasLoggedIn && !session.LoggedIn() {
		a.setSession(nil)
		fmt.Fprintln(a.out, "Your session has expired, please log in again.")
	}
	return res, nil
}
