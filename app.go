package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"

	"ragdesk/internal/database"
	"ragdesk/internal/gateway"
	"ragdesk/internal/llm/client"
	"ragdesk/internal/notify"
	"ragdesk/internal/services"
	"ragdesk/internal/utils"
)

// App wires the long-lived pieces together: the settings record, the local
// conversation store and the remote action client.
type App struct {
	Settings  services.SettingsService
	History   services.HistoryService
	Documents services.DocumentService
	Gateway   *gateway.Client
	Keyring   *services.KeyringService

	serverURL string
	dbClose   func() error
}

// NewApp opens the backing stores and constructs every service. An empty
// serverURL falls back to the environment. The caller owns shutdown.
func NewApp(serverURL string) (*App, error) {
	if serverURL == "" {
		serverURL = utils.ServerURL()
	}

	settingsPath, err := services.DefaultSettingsPath()
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}

	db, err := database.Init(database.Config{
		Path:     filepath.Join(filepath.Dir(settingsPath), "ragdesk.db"),
		LogLevel: logger.Warn,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	app := &App{
		Settings:  services.NewSettingsService(settingsPath),
		Keyring:   services.NewKeyringService(),
		serverURL: serverURL,
	}

	svc := services.NewDbServices(db)
	app.History = svc.History

	notifier := notify.NewLogNotifier()
	app.Gateway = gateway.NewClient(app.serverURL, app.apiKey(), notifier)
	ocr := gateway.NewOCRClient("", notifier)
	app.Documents = services.NewDocumentService(app.Gateway, ocr)

	if sqlDB, err := db.DB(); err != nil {
		logrus.Errorf("failed to get sql.DB: %v", err)
	} else {
		app.dbClose = sqlDB.Close
	}
	return app, nil
}

// apiKey resolves the server credential: the keyring entry for the current
// server wins, then the environment, then the settings record.
func (a *App) apiKey() string {
	if key, err := a.Keyring.GetAPIKey(a.serverURL); err == nil && key != "" {
		return key
	}
	if key := utils.APIKey(); key != "" {
		return key
	}
	return a.Settings.Load().APIKey
}

// ServerURL returns the inference server base URL the app talks to.
func (a *App) ServerURL() string {
	return a.serverURL
}

// NewChatClient builds a chat client against the app's server with the
// current settings applied. Model may be empty.
func (a *App) NewChatClient(ctx context.Context, model string) (*client.ChatClient, error) {
	cfg := a.Settings.Load()
	cfg.APIKey = a.apiKey()
	return client.NewChatClient(ctx, a.serverURL, model, cfg)
}

// Shutdown closes the database connection pool.
func (a *App) Shutdown() {
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			logrus.Errorf("failed to close database: %v", err)
		}
		a.dbClose = nil
	}
}
