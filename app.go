// Package bookstore is a small bookstore server built with Go, Echo, and
// templ. Pages are rendered from a declarative UI metadata tree; form
// submissions go through a REST API backed by SQLite or MongoDB.
package bookstore

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/eringen/bookstore/api"
	"github.com/eringen/bookstore/client"
	"github.com/eringen/bookstore/form"
	"github.com/eringen/bookstore/metrics"
	"github.com/eringen/bookstore/model"
	"github.com/eringen/bookstore/store"
)

// App is the central bookstore application. It wires together the model,
// metadata cache, API, handlers and middleware.
type App struct {
	Config Config
	Echo   *echo.Echo
	Model  *model.Model
	Meta   *MetaCache
	API    *api.Handler

	storage      model.Storage
	dispatcher   form.Dispatcher
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new App with the given configuration.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Init opens storage and sets up middleware and routes without starting
// the server.
func (a *App) Init(ctx context.Context) error {
	if a.Config.SessionSecret == "" {
		return fmt.Errorf("bookstore: SessionSecret is required")
	}

	if a.storage == nil {
		s, err := store.Open(ctx, a.Config.DatabaseURL, a.Config.DatabaseName)
		if err != nil {
			return fmt.Errorf("bookstore: open storage: %w", err)
		}
		a.storage = s
	}
	a.Model = model.New(a.storage)

	a.Meta = NewMetaCache(a.Config.MetaPath, a.Config.MetaTTL)
	if _, err := a.Meta.Renderer(); err != nil {
		return fmt.Errorf("bookstore: load metadata: %w", err)
	}

	a.API = api.New(a.Model,
		api.WithAdminToken(a.Config.AdminToken),
		api.WithCartLimit(a.Config.CartLimit, a.Config.CartWindow),
	)

	if a.dispatcher == nil {
		c, err := client.New(a.Config.APIURL, client.WithAdminToken(a.Config.AdminToken))
		if err != nil {
			return fmt.Errorf("bookstore: %w", err)
		}
		a.dispatcher = form.NewClientDispatcher(c)
	}

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start initializes the app and starts the server.
func (a *App) Start() error {
	if err := a.Init(context.Background()); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Embedded assets first; the user's static dir serves anything else
	// under /public.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/form.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/style.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.Static("/public", a.staticDir)
	e.Static("/covers", a.Config.CoversDir)

	e.GET("/", a.handlePage)
	e.POST("/submit", a.handleSubmit)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	g := a.API.RegisterRoutes(e)
	g.PUT("/books/:isbn/cover", a.handleCoverUpload, a.API.RequireAdmin)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.API != nil {
		a.API.Close()
	}
	if a.Model != nil {
		return a.Model.Close()
	}
	if a.storage != nil {
		return a.storage.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// MustEnv returns the value of the environment variable key, or fatally exits if empty.
func MustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("bookstore: required environment variable %s is not set", key)
	}
	return v
}
