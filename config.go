package bookstore

import (
	"strings"
	"time"

	"github.com/eringen/bookstore/form"
	"github.com/eringen/bookstore/model"
)

// Config holds all configuration for a bookstore server.
type Config struct {
	Name string // Site name (default "Bookstore")
	URL  string // Canonical URL (default "http://localhost:3000")
	Addr string // Listen address (default ":3000")

	DatabaseURL  string // SQLite path, "memory:" or mongodb:// URL (default "data/bookstore.db")
	DatabaseName string // MongoDB database name (default "bookstore")

	MetaPath string        // UI metadata YAML file; empty uses the built-in tree
	MetaTTL  time.Duration // How often MetaPath is checked for changes (default 1min)

	APIURL     string // API base the UI submits through (default derived from Addr)
	AdminToken string // Required in X-Admin-Token for catalog writes when set

	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	CoversDir  string        // Cover image directory (default "data/covers")
	CartLimit  int           // Carts one IP may create per CartWindow (default 30)
	CartWindow time.Duration // Default 1min
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Bookstore"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/bookstore.db"
	}
	if c.DatabaseName == "" {
		c.DatabaseName = "bookstore"
	}
	if c.MetaTTL == 0 {
		c.MetaTTL = time.Minute
	}
	if c.APIURL == "" {
		host := c.Addr
		if strings.HasPrefix(host, ":") {
			host = "localhost" + host
		}
		c.APIURL = "http://" + host + "/api"
	}
	if c.CoversDir == "" {
		c.CoversDir = "data/covers"
	}
	if c.CartLimit == 0 {
		c.CartLimit = 30
	}
	if c.CartWindow == 0 {
		c.CartWindow = time.Minute
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for additional static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithStorage uses s instead of opening Config.DatabaseURL.
func WithStorage(s model.Storage) Option {
	return func(a *App) {
		a.storage = s
	}
}

// WithDispatcher replaces the dispatcher form submissions are handed to.
func WithDispatcher(d form.Dispatcher) Option {
	return func(a *App) {
		a.dispatcher = d
	}
}
