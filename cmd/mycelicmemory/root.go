package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mycelicmemory/core/internal/memory"
	"github.com/mycelicmemory/core/internal/providers/httpprovider"
	"github.com/mycelicmemory/core/pkg/config"
)

// Version is set during build.
var Version = "1.2.0"

var userID string

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "mycelicmemory",
	Short: "On-device long-term memory engine for conversational agents",
	Long: `mycelicmemory stores free-form utterances as a durable, content-addressable
knowledge graph and answers natural-language queries with a ranked context.

Examples:
  mycelicmemory store "I moved to San Francisco."
  mycelicmemory query "where do I live"
  mycelicmemory session start
  mycelicmemory stats
  mycelicmemory doctor`,
	Version: Version,
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().String("log_level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "default", "user id to scope memories to")
}

// openFacade loads config, wires the HTTP embedding provider, and opens
// the Client Facade, performing startup recovery (spec §4.7).
func openFacade() (*memory.Facade, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureConfigDir(); err != nil {
		return nil, nil, err
	}

	provider := httpprovider.New(httpprovider.Config{
		BaseURL:        cfg.Provider.BaseURL,
		EmbeddingModel: cfg.Provider.Model,
		ChatModel:      cfg.Provider.ChatModel,
		Dimensions:     cfg.Embedding.Dimensions,
		Timeout:        cfg.Provider.Timeout,
	})

	fac, err := memory.Open(cfg, provider, provider)
	if err != nil {
		return nil, nil, fmt.Errorf("open memory facade: %w", err)
	}
	return fac, cfg, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
