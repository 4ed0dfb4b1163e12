package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veloce-ai/veloce/pkg/config"
	"github.com/veloce-ai/veloce/pkg/embedder"
)

func newEmbedCmd() *cobra.Command {
	var (
		configPath string
		model      string
		dimensions int
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "embed <text>",
		Short: "Embed a text through the cache-or-generate pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			p, cleanup, err := buildPipeline(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(context.Background(), embedTimeout)
			defer cancel()

			res := p.Embed(ctx, args[0], embedder.GenerateOptions{
				Model:      model,
				Dimensions: dimensions,
			})
			if !res.Success {
				return fmt.Errorf("embedding failed (%s): %s", res.ErrorKind, res.Error)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Printf("Model:      %s\n", res.Model)
			fmt.Printf("Dimensions: %d\n", res.Dimensions)
			fmt.Printf("Source:     %s\n", res.Source)
			fmt.Printf("Key:        %s\n", res.Key)
			fmt.Printf("Latency:    %dms\n", res.DurationMs)
			if !res.Cached {
				fmt.Printf("Tokens:     %d\n", res.Usage.TotalTokens)
				fmt.Printf("Cost:       $%.6f\n", res.Cost)
				fmt.Printf("Attempts:   %d\n", res.Attempt)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "veloce.yaml", "path to config file")
	cmd.Flags().StringVar(&model, "model", "", "override the embedding model")
	cmd.Flags().IntVar(&dimensions, "dimensions", 0, "override the embedding dimensions")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}
