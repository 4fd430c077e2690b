package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/labelscore/internal/store"
)

var pruneOlderThan time.Duration

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the client result cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cache entries older than the TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		age := pruneOlderThan
		if age == 0 {
			age = time.Duration(cfg.Client.Cache.TTLHours) * time.Hour
		}

		backend, err := store.Open(ctx, cfg.Client.Cache.Driver, cfg.Client.Cache.DSN, &store.PoolConfig{
			MaxConns: cfg.Client.Cache.MaxConns,
			MinConns: cfg.Client.Cache.MinConns,
		})
		if err != nil {
			return eris.Wrap(err, "cache: open")
		}
		defer backend.Close() //nolint:errcheck

		cutoff := time.Now().Add(-age).UnixMilli()
		n, err := backend.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}

		zap.L().Info("cache pruned", zap.Int("deleted", n), zap.Duration("older_than", age))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", n)
		return err
	},
}

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0, "max entry age (default client.cache.ttl_hours)")
	cacheCmd.AddCommand(cachePruneCmd)
	rootCmd.AddCommand(cacheCmd)
}
