package main

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/odin-run/odin/internal/application/apperrors"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	quiet     bool
)

// rootCmd is the odin CLI entry point.
var rootCmd = &cobra.Command{
	Use:   "odin",
	Short: "Capability-governed orchestration runtime for external plugins",
	Long: `Odin lets external plugins act on behalf of users against sensitive
resources under strict capability-based governance. This CLI wraps the
governance core's discovery, install-gate, and migration subsystems.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		setupLogging()
	},
	SilenceUsage: true,
}

// Execute runs the root command, mapping a returned *apperrors.Error's Kind
// to a distinct, stable exit code so scripts can branch on failure class.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return 1
	}
	switch appErr.Kind() {
	case apperrors.KindInvalidInput:
		return 2
	case apperrors.KindPolicy:
		return 3
	case apperrors.KindAudit:
		return 4
	case apperrors.KindExecution:
		return 5
	case apperrors.KindPlugin:
		return 6
	default:
		return 1
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.odin/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all log output, including errors")

	rootCmd.AddCommand(governanceCmd)
	rootCmd.AddCommand(migrateCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			slog.Error("failed to read specified config file", "file", cfgFile, "error", err)
			os.Exit(1)
		}
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		slog.Error("failed to find home directory", "error", err)
		os.Exit(1)
	}

	viper.AddConfigPath(home + "/.odin")
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // optional; silently continue if absent
}

func setupLogging() {
	level := parseLogLevel(logLevel)
	if quiet {
		level = slog.LevelError + 1
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(logFormat, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
