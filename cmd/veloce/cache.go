package main

import (
	"fmt"

	"github.com/spf13/cobra"

	cachepkg "github.com/veloce-ai/veloce/pkg/cache"
	"github.com/veloce-ai/veloce/pkg/config"
)

func newCacheCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the embedding cache",
	}

	openCache := func() (*cachepkg.Cache, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return cachepkg.New(cachepkg.Options{
			Backend:         cachepkg.Backend(cfg.Cache.Backend),
			TTL:             cfg.Cache.TTL,
			MaxSize:         cfg.Cache.MaxSize,
			Dir:             cfg.Cache.Dir,
			CleanupInterval: cfg.Cache.CleanupInterval,
		})
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			stats := c.Stats()
			fmt.Printf("Entries:    %d\n", stats.Entries)
			fmt.Printf("Size:       %d bytes\n", stats.TotalSizeBytes)
			fmt.Printf("Hits:       %d\n", stats.Hits)
			fmt.Printf("Misses:     %d\n", stats.Misses)
			fmt.Printf("Sets:       %d\n", stats.Sets)
			fmt.Printf("Deletes:    %d\n", stats.Deletes)
			fmt.Printf("Evictions:  %d\n", stats.Evictions)
			fmt.Printf("Hit rate:   %.2f%%\n", stats.HitRate*100)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cache entries from both tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			c.Clear()
			fmt.Println("All cache entries cleared.")
			return nil
		},
	}

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCache()
			if err != nil {
				return err
			}
			defer c.Close()

			before := c.Stats().Entries
			c.CleanupExpired()
			after := c.Stats().Entries
			fmt.Printf("Removed %d expired entries.\n", before-after)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "veloce.yaml", "path to config file")
	cmd.AddCommand(statsCmd, clearCmd, cleanupCmd)
	return cmd
}
