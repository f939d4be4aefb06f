package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/bookstore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if !cmd.Flags().Changed("addr") {
			addr = bookstore.EnvOr("BOOKSTORE_ADDR", addr)
		}
		app := bookstore.New(bookstore.Config{
			Name:          bookstore.EnvOr("BOOKSTORE_NAME", "Bookstore"),
			URL:           os.Getenv("BOOKSTORE_URL"),
			Addr:          addr,
			DatabaseURL:   dbURL,
			DatabaseName:  dbName,
			MetaPath:      os.Getenv("BOOKSTORE_META"),
			MetaTTL:       envDuration("BOOKSTORE_META_TTL"),
			APIURL:        os.Getenv("BOOKSTORE_API_URL"),
			AdminToken:    os.Getenv("BOOKSTORE_ADMIN_TOKEN"),
			SessionSecret: bookstore.MustEnv("BOOKSTORE_SESSION_SECRET"),
			CookieSecure:  os.Getenv("BOOKSTORE_COOKIE_SECURE") == "true",
			CoversDir:     os.Getenv("BOOKSTORE_COVERS_DIR"),
			CartLimit:     envInt("BOOKSTORE_CART_LIMIT"),
			CartWindow:    envDuration("BOOKSTORE_CART_WINDOW"),
		}, bookstore.WithStaticDir(bookstore.EnvOr("BOOKSTORE_STATIC_DIR", "public")))
		defer app.Close()
		return app.Start()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":3000", "Listen address (env BOOKSTORE_ADDR)")
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("bookstore: %s: %v", key, err)
	}
	return d
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("bookstore: %s: %v", key, err)
	}
	return n
}
