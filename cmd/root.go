package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"poolprobe/internal/banner"
	"poolprobe/internal/runner"
	"poolprobe/internal/search"
)

var (
	cfgFile   string
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "poolprobe",
	Short: "poolprobe - find the connection pool size with the best throughput",
	Long: `
poolprobe searches for the outbound connection pool size that maximizes
request throughput against a single endpoint.

Each trial sends a fixed batch of requests through a pool capped at a
candidate size. A three-point interval search narrows the candidate range
until it collapses, writing every trial and its CPU profile to a report
directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		s, err := loadSettings()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_, err = runSearch(ctx, s, os.Stdout)
		return err
	},
}

func Execute() {
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.poolprobe.yaml)")
	rootCmd.PersistentFlags().String("history-db", "", "history database (default is $HOME/.poolprobe/history.db)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	f := rootCmd.Flags()
	f.String("host", DefaultHost, "Target host")
	f.Int("port", DefaultPort, "Target port")
	f.String("path", DefaultPath, "Target path")
	f.String("scheme", "https", "Target scheme")
	f.StringP("method", "X", "GET", "HTTP Method")
	f.StringSliceP("header", "H", []string{}, "HTTP Header (e.g. \"Key: Value\")")
	f.BoolP("insecure", "k", false, "Skip TLS certificate verification")
	f.IntP("requests", "n", runner.DefaultRequestCount, "Requests per trial")
	f.Int("low", search.DefaultLow, "Smallest pool size to consider")
	f.Int("high", search.DefaultHigh, "Largest pool size to consider")
	f.Duration("jitter", runner.DefaultJitter, "Delay before each request is dispatched")
	f.Duration("cooldown", search.DefaultCooldown, "Pause between iterations")
	f.Int("timeout", runner.DefaultTimeoutSec, "Request timeout in seconds")
	f.Duration("trial-timeout", 0, "Abort a trial that runs longer than this (0 disables)")
	f.StringP("out", "o", DefaultReportsDir, "Directory for run reports")
	f.Bool("no-profile", false, "Skip CPU profiling of trials")
	f.Bool("no-history", false, "Do not store the run in the history database")
	f.Bool("tui", false, "Show the interactive live view")
	f.String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :9090)")

	viper.BindPFlags(rootCmd.PersistentFlags())
	viper.BindPFlags(f)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".poolprobe")
		}
	}
	viper.SetEnvPrefix("POOLPROBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	configErr = readConfig(cfgFile != "")
}

// readConfig loads the config file. A missing default file is fine; an
// explicit file must exist and parse.
func readConfig(explicit bool) error {
	err := viper.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !explicit && errors.As(err, &notFound) {
		return nil
	}
	return fmt.Errorf("failed to read config: %w", err)
}
