package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vedran77/agora/internal/kv"
)

// wordsCmd manages the forbidden-word list used by signup and profile checks.
var wordsCmd = &cobra.Command{
	Use:   "words",
	Short: "Manage forbidden words for user ids and nicknames",
}

var wordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List forbidden words",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withStore(func(store *kv.Store) error {
			words, err := store.ForbiddenWords(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range words {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		})
	},
}

var wordsAddCmd = &cobra.Command{
	Use:   "add WORD...",
	Short: "Add forbidden words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *kv.Store) error {
			for _, w := range args {
				if err := store.AddForbiddenWord(cmd.Context(), w); err != nil {
					return fmt.Errorf("adding %q: %w", w, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d word(s)\n", len(args))
			return nil
		})
	},
}

var wordsRemoveCmd = &cobra.Command{
	Use:   "remove WORD...",
	Short: "Remove forbidden words",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *kv.Store) error {
			for _, w := range args {
				if err := store.RemoveForbiddenWord(cmd.Context(), w); err != nil {
					return fmt.Errorf("removing %q: %w", w, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d word(s)\n", len(args))
			return nil
		})
	},
}

func init() {
	wordsCmd.AddCommand(wordsListCmd, wordsAddCmd, wordsRemoveCmd)
}

func withStore(fn func(store *kv.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := kv.Open(cfg.KV)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}
