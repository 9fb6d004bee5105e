// Package cmd implements the CLI commands for dlcut.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/dlcut/internal/config"
	"github.com/jmylchreest/dlcut/internal/observability"
	"github.com/jmylchreest/dlcut/internal/version"
)

// cfgFile holds the config file path from CLI flag.
var cfgFile string

// cfg is the configuration loaded before any command runs.
var cfg *config.Config

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "dlcut",
	Short:   "Download, cut and preview videos",
	Version: version.Short(),
	Long: `dlcut downloads YouTube videos with yt-dlp, cuts local files with ffmpeg
and serves them for preview.

Use it directly from the command line, or run "dlcut serve" to expose the
same operations over a local HTTP API with live progress events.`,
	SilenceUsage: true,
	// PersistentPreRunE is set in init() to avoid initialization cycle
}

// Execute adds all child commands to the root command and sets flags appropriately.
// SIGINT and SIGTERM cancel the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return loadConfig()
	}

	// These flags are not bound to viper. They override config and env only
	// when set explicitly, so the priority stays flag > env > file > default.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.dlcut/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env file in the working directory may hold DLCUT_ overrides. Variables
	// already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Ignoring .env:", err)
	}

	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + string(os.PathSeparator) + ".dlcut")
		}
		viper.AddConfigPath("/etc/dlcut")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the configuration, applies the logging flags and
// installs the default logger.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-format) - only if explicitly provided
//  2. Environment variables (DLCUT_LOGGING_LEVEL, DLCUT_LOGGING_FORMAT)
//  3. Config file values
//  4. Built-in defaults (info, text)
func loadConfig() error {
	flags := rootCmd.PersistentFlags()
	if flags.Changed("log-level") {
		level, _ := flags.GetString("log-level")
		level = strings.ToLower(level)
		if level == "warning" {
			level = "warn"
		}
		viper.Set("logging.level", level)
	}
	if flags.Changed("log-format") {
		format, _ := flags.GetString("log-format")
		viper.Set("logging.format", strings.ToLower(format))
	}

	loaded, err := config.FromViper(viper.GetViper())
	if err != nil {
		return err
	}
	cfg = loaded

	logger := observability.NewLogger(cfg.Logging)
	logger = logger.With(slog.String("app", "dlcut"))
	observability.SetDefault(logger)

	return nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
