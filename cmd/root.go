// Package cmd provides the command-line interface for keyforge.
//
// Configuration sources, highest priority first:
//  1. Command-line flags (--output, --watch, ...)
//  2. KEYFORGE_-prefixed environment variables (KEYFORGE_OUTPUT, ...)
//  3. A .keyforge.yml file in the current directory
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/engine"
	kferrors "github.com/keyforge/keyforge/internal/errors"
	"github.com/keyforge/keyforge/internal/logging"
	"github.com/keyforge/keyforge/internal/materialize"
	"github.com/keyforge/keyforge/internal/orchestrate"
	"github.com/keyforge/keyforge/internal/preview"
	"github.com/keyforge/keyforge/internal/source"
	"github.com/keyforge/keyforge/internal/version"
	"github.com/keyforge/keyforge/internal/watcher"
)

// debounceWindow groups rapid successive edits into one regeneration.
const debounceWindow = 300 * time.Millisecond

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "keyforge <config>",
	Short: "Generate keyboard layout artifacts from a config",
	Long: `Keyforge turns a layout config — a YAML file, a zip-style bundle, or a
directory tree — into outlines, cases, pcbs, and point data on disk.

Examples:
  keyforge config.yaml                  Generate once into ./output
  keyforge board.kbz -o build --clean   Generate a bundle into a fresh build/
  keyforge my-board/ --watch            Regenerate whenever the config changes
  keyforge my-board/ --watch --serve    Watch plus a live-reload preview server`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute runs the root command and returns its error for exit-code
// mapping in main.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}

	return err
}

func init() {
	cobra.OnInitialize(initConfig)
	addGenerateFlags(rootCmd)
}

// initConfig wires viper to the optional .keyforge.yml and the KEYFORGE_
// environment prefix. A missing or malformed file degrades to defaults.
func initConfig() {
	viper.AddConfigPath(".")
	viper.SetConfigType("yaml")
	viper.SetConfigName(".keyforge")

	viper.SetEnvPrefix("KEYFORGE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(args)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)

	fmt.Println(banner(cfg.Debug))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := source.NewResolver(logger)
	writer := materialize.NewWriter(cfg.Output, logger)
	orch := orchestrate.New(engine.NewReference(), writer, logger, orchestrate.Options{
		Debug: cfg.Debug,
		Clean: cfg.Clean,
	})
	cycle := orchestrate.NewCycle(resolver, orch, cfg.ConfigPath, logger)

	if _, err := cycle.Bootstrap(ctx); err != nil {
		// Resolution failures on the initial read are fatal; generation
		// and materialization failures are already captured and logged.
		return err
	}

	if !cfg.Watch {
		fmt.Println("Done.")

		return nil
	}

	return runWatch(ctx, cfg, cycle, logger)
}

// resolveConfig merges flags, env, and file settings, then validates the
// positional argument.
func resolveConfig(args []string) (*config.Config, error) {
	if len(args) < 1 {
		return nil, kferrors.NewUsageError("missing config path (usage: keyforge <config>)", 1)
	}
	if len(args) > 1 {
		return nil, kferrors.NewUsageError("expected exactly one config path", 1)
	}

	configPath := args[0]
	if _, err := os.Stat(configPath); err != nil {
		return nil, kferrors.NewUsageError(fmt.Sprintf("config path %s does not exist", configPath), 2)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, kferrors.NewUsageError(err.Error(), 1)
	}
	cfg.ConfigPath = configPath

	return cfg, nil
}

func newLogger(cfg *config.Config) logging.Logger {
	level := logging.LevelInfo
	switch {
	case cfg.Debug:
		level = logging.LevelDebug
	case cfg.Log.Level == "debug":
		level = logging.LevelDebug
	case cfg.Log.Level == "warn":
		level = logging.LevelWarn
	case cfg.Log.Level == "error":
		level = logging.LevelError
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}

// banner is the startup line printed before the first run.
func banner(debug bool) string {
	if debug {
		return version.String() + " [debug]"
	}

	return version.String()
}

// runWatch keeps regenerating until the process is terminated. Generation
// and materialization failures never end the loop; only signals do.
func runWatch(ctx context.Context, cfg *config.Config, cycle *orchestrate.Cycle, logger logging.Logger) error {
	w, err := watcher.New(cfg.ConfigPath, debounceWindow, logger)
	if err != nil {
		return kferrors.NewResolutionError(cfg.ConfigPath, "setting up watch", err)
	}
	defer w.Stop()

	if cfg.Serve.Enabled {
		server := preview.NewServer(cfg.Serve.Port, cfg.Output, logger)
		cycle.OnSuccess(func() { server.NotifyReload(ctx) })

		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Error(ctx, err, "preview server failed")
			}
		}()
	}

	w.AddHandler(func(events []watcher.Event) {
		cycle.OnChange(ctx, events)
	})
	w.Start(ctx)

	fmt.Printf("Watching %s for changes...\n", cfg.ConfigPath)

	<-ctx.Done()
	fmt.Println("Stopped.")

	return nil
}
