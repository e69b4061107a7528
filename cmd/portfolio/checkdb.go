package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/pbaille/portfolio/internal/store"
	"github.com/spf13/cobra"
)

func checkDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-db",
		Short: "Verify that the configured database is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return &exitError{code: 2, err: errors.New("DATABASE_URL is not set")}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DatabaseConnectTimeout)
			defer cancel()

			s, err := store.OpenSQL(ctx, cfg.DatabaseURL, cfg.DatabaseName)
			if err != nil {
				return &exitError{code: 1, err: err}
			}
			defer s.Close()

			if err := s.Ping(ctx); err != nil {
				return &exitError{code: 1, err: err}
			}

			name := cfg.DatabaseName
			if name == "" {
				name = "(default)"
			}
			fmt.Printf("OK: Connected to %s at %s db=%s\n", s.Driver(), redact(cfg.DatabaseURL), name)
			return nil
		},
	}
}

// redact hides any password in a database URL
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
