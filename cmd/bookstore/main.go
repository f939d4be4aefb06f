package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/eringen/bookstore"
	"github.com/eringen/bookstore/model"
	"github.com/eringen/bookstore/store"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	envFile string
	dbURL   string
	dbName  string
)

var rootCmd = &cobra.Command{
	Use:   "bookstore",
	Short: "Bookstore server and catalog tools",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		if !cmd.Flags().Changed("db") {
			dbURL = bookstore.EnvOr("BOOKSTORE_DB", dbURL)
		}
		if !cmd.Flags().Changed("db-name") {
			dbName = bookstore.EnvOr("BOOKSTORE_DB_NAME", dbName)
		}
		return nil
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the bookstore version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bookstore %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Environment file to load if present")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "data/bookstore.db", "SQLite path, memory: or mongodb:// URL (env BOOKSTORE_DB)")
	rootCmd.PersistentFlags().StringVar(&dbName, "db-name", "bookstore", "MongoDB database name (env BOOKSTORE_DB_NAME)")
	rootCmd.AddCommand(versionCmd, serveCmd, loadCmd, clearCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openModel opens the configured storage for one-shot commands.
func openModel(ctx context.Context) (*model.Model, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	s, err := store.Open(ctx, dbURL, dbName)
	if err != nil {
		return nil, err
	}
	return model.New(s), nil
}
