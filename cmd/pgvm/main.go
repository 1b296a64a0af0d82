// Copyright 2025 Juan Font
// BSD-3-Clause

// pgvm is the operator tooling of the vSAN lab: credential profiles, the
// custom HCL refresh and the VM inventory export.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/juanfont/pgvm/backup"
	"github.com/juanfont/pgvm/logger"
	"github.com/juanfont/pgvm/profile"
	"github.com/juanfont/pgvm/prompt"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var appFs = afero.NewOsFs()

var rootCmd = &cobra.Command{
	Use:   "pgvm",
	Short: "Operator tooling for the vSAN lab",
	Long: `Operator tooling for the vSAN lab.

Credentials are kept per profile under the base directory (~/.pgvm/ by
default), one cred.json per profile with timestamped backups.

Settings can also be given as PGVM_* environment variables or in a .env file
in the working directory.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

func init() {
	viper.SetEnvPrefix("PGVM")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Also load from .env file if present
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	_ = viper.ReadInConfig()

	viper.SetDefault("base-dir", profile.DefaultRoot)
	viper.SetDefault("cred-backups", profile.DefaultMaxBackups)
	viper.SetDefault("setcred-backups", defaultSetcredBackups)
	viper.SetDefault("log-level", "info")

	rootCmd.PersistentFlags().String("base-dir", profile.DefaultRoot, "Profile root directory")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	_ = viper.BindPFlag("base-dir", rootCmd.PersistentFlags().Lookup("base-dir"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("no-color", rootCmd.PersistentFlags().Lookup("no-color"))
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if err := logger.SetLevel(viper.GetString("log-level")); err != nil {
		return err
	}
	if viper.GetBool("log-json") {
		logger.UseJSONLogging(os.Stderr)
	} else {
		logger.CliLogger(colorEnabled() && term.IsTerminal(int(os.Stderr.Fd())))
	}
	return nil
}

func colorEnabled() bool {
	return !viper.GetBool("no-color") && term.IsTerminal(int(os.Stdout.Fd()))
}

func newConsole() *prompt.Console {
	return prompt.Stdio(colorEnabled())
}

func newStore() (*profile.Store, error) {
	limit, err := backupLimit("cred-backups")
	if err != nil {
		return nil, err
	}
	return profile.NewStore(appFs, viper.GetString("base-dir"), limit)
}

// backupLimit reads a backup count setting, which must be positive.
func backupLimit(key string) (int, error) {
	n := viper.GetInt(key)
	if n < 1 {
		return 0, errors.Wrapf(backup.ErrInvalidLimit, "%s=%q", key, viper.GetString(key))
	}
	return n, nil
}

// getEnv returns the first non-empty setting among keys.
func getEnv(keys ...string) string {
	for _, k := range keys {
		if v := viper.GetString(k); v != "" {
			return v
		}
	}
	return ""
}
