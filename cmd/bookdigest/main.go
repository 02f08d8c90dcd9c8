package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/bookdigest/internal/cache"
	"github.com/dgallion1/bookdigest/internal/cache/sqlite"
	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/llm"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg config.Config
	log *slog.Logger

	configPath string
	provider   string
	baseURL    string
	model      string
	verbose    bool
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "bookdigest",
		Short:         "Summarize books and build mind maps with an LLM backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file (overrides BOOKDIGEST_CONFIG)")
	root.PersistentFlags().StringVar(&a.provider, "provider", "", "LLM provider: openai|302.ai|openrouter|ollama|gemini")
	root.PersistentFlags().StringVar(&a.baseURL, "base-url", "", "LLM endpoint base URL")
	root.PersistentFlags().StringVar(&a.model, "model", "", "LLM model name")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log pipeline activity to stderr")

	root.AddCommand(chaptersCmd(a), runCmd(a), cacheCmd(a), pingCmd(a))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitCode reports err and picks the process status. An interrupted run is
// not a failure and ends quietly.
func exitCode(err error, stderr io.Writer) int {
	if errors.Is(err, context.Canceled) {
		return 0
	}
	fmt.Fprintln(stderr, "error:", err)
	return 1
}

func (a *app) init() error {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelInfo
	}
	a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if a.configPath != "" {
		os.Setenv("BOOKDIGEST_CONFIG", a.configPath)
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.provider != "" && a.provider != cfg.LLM.Provider {
		cfg.LLM.Provider = a.provider
		cfg.LLM.BaseURL = ""
		cfg.LLM.Model = ""
	}
	if a.baseURL != "" {
		cfg.LLM.BaseURL = a.baseURL
	}
	if a.model != "" {
		cfg.LLM.Model = a.model
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// openCache opens the configured stage cache; an empty path keeps it in
// memory for the lifetime of the command.
func (a *app) openCache(ctx context.Context) (cache.Store, error) {
	if a.cfg.CacheDBPath == "" {
		return cache.NewMemory(), nil
	}
	return sqlite.OpenSQLite(ctx, a.cfg.CacheDBPath)
}

func (a *app) newProvider(ctx context.Context, s llm.Settings) (llm.Provider, error) {
	return llm.New(ctx, s, a.log)
}
