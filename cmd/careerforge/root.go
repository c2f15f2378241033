package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/client/notify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// settings merges flags, CAREERFORGE_* variables and <data-dir>/config.yaml,
// in that order of precedence.
var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "careerforge",
	Short: "Learning roadmaps and streaks from the terminal",
	Long: `careerforge keeps your learning roadmaps and daily streak in sync with a
CareerForge server.

Without a login everything is kept as a guest in the local mirror. Logging in
uploads guest roadmaps to your account once, and from then on the server is the
source of truth while the mirror keeps working offline.

Settings come from flags, CAREERFORGE_* environment variables and
config.yaml in the data directory.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("data-dir", defaultDataDir(), "Directory holding the session, mirror and log")
	f.String("server", "http://localhost:8080", "CareerForge server URL")
	f.String("notifier", "file", "Change notifications between terminals: file, redis or none")
	f.String("redis-addr", "localhost:6379", "Redis address for --notifier=redis")
	f.String("redis-channel", notify.DefaultRedisChannel, "Redis pub/sub channel for --notifier=redis")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.BoolP("verbose", "v", false, "Also write logs to stderr")

	for _, name := range []string{"data-dir", "server", "notifier", "redis-addr", "redis-channel", "log-level", "verbose"} {
		_ = settings.BindPFlag(name, f.Lookup(name))
	}
	settings.SetEnvPrefix("CAREERFORGE")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()

	rootCmd.AddGroup(
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "learning", Title: "Learning:"},
	)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd, roadmapsCmd, streakCmd)
}

func loadSettings(cmd *cobra.Command, args []string) error {
	settings.SetConfigName("config")
	settings.SetConfigType("yaml")
	settings.AddConfigPath(settings.GetString("data-dir"))
	if err := settings.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	switch settings.GetString("notifier") {
	case "file", "redis", "none":
	default:
		return fmt.Errorf("unknown notifier %q (want file, redis or none)", settings.GetString("notifier"))
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "careerforge")
	}
	return ".careerforge"
}
