package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/bookstore/model"
)

var loadCmd = &cobra.Command{
	Use:   "load <books.json>...",
	Short: "Add or update books from JSON files holding arrays of books",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openModel(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Close()

		total := 0
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			var books []model.Values
			if err := json.Unmarshal(data, &books); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for i, b := range books {
				// Exported catalogs may carry the timestamp; it is always refreshed.
				delete(b, "_lastModified")
				if _, err := m.AddBook(cmd.Context(), b); err != nil {
					return fmt.Errorf("%s: book %d: %w", path, i, err)
				}
			}
			total += len(books)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d books\n", total)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all carts and books",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openModel(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Close()
		if err := m.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cleared")
		return nil
	},
}
