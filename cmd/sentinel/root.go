package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fieldsight/sentinel/internal/domain"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "sentinel",
	Short:         "Batch risk scoring for field enrolment operators.",
	Long:          `Sentinel aggregates daily district baselines from operator activity and scores every operator against them, flagging statistical anomalies for the fraud dashboard.`,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./sentinel.yaml)")
	rootCmd.PersistentFlags().String("tier", "", "Deployment tier: community or pro")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("tier", rootCmd.PersistentFlags().Lookup("tier"))
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig reads in config file and SENTINEL_* environment variables.
func initConfig() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("sentinel")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("SENTINEL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// loadConfig resolves the effective configuration: tier defaults, then
// config file, then environment, then flags.
func loadConfig() (*domain.Config, error) {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine; defaults/env/flags apply.
	}

	cfg := domain.DefaultConfig()
	if domain.Tier(viper.GetString("tier")) == domain.TierPro {
		cfg = domain.ProConfig()
	}

	applyOverrides(cfg)

	if err := viper.UnmarshalKey("flagRules", &cfg.FlagRules); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyOverrides copies explicitly-set viper keys onto the tier defaults.
func applyOverrides(cfg *domain.Config) {
	if viper.IsSet("server.host") {
		cfg.Server.Host = viper.GetString("server.host")
	}
	if viper.IsSet("server.port") {
		cfg.Server.Port = viper.GetInt("server.port")
	}
	if viper.IsSet("logging.level") && viper.GetString("logging.level") != "" {
		cfg.Logging.Level = viper.GetString("logging.level")
	}
	if viper.IsSet("logging.format") {
		cfg.Logging.Format = viper.GetString("logging.format")
	}
	if viper.IsSet("repository.driver") {
		cfg.Repository.Driver = viper.GetString("repository.driver")
	}
	if viper.IsSet("repository.sqlitePath") {
		cfg.Repository.SQLitePath = viper.GetString("repository.sqlitePath")
	}
	if viper.IsSet("repository.postgresHost") {
		cfg.Repository.PostgresHost = viper.GetString("repository.postgresHost")
	}
	if viper.IsSet("repository.postgresPort") {
		cfg.Repository.PostgresPort = viper.GetInt("repository.postgresPort")
	}
	if viper.IsSet("repository.postgresUser") {
		cfg.Repository.PostgresUser = viper.GetString("repository.postgresUser")
	}
	if viper.IsSet("repository.postgresPassword") {
		cfg.Repository.PostgresPassword = viper.GetString("repository.postgresPassword")
	}
	if viper.IsSet("repository.postgresDB") {
		cfg.Repository.PostgresDB = viper.GetString("repository.postgresDB")
	}
	if viper.IsSet("cache.type") {
		cfg.Cache.Type = viper.GetString("cache.type")
	}
	if viper.IsSet("cache.redisAddr") {
		cfg.Cache.RedisAddr = viper.GetString("cache.redisAddr")
	}
	if viper.IsSet("cache.redisPassword") {
		cfg.Cache.RedisPassword = viper.GetString("cache.redisPassword")
	}
	if viper.IsSet("eventBus.type") {
		cfg.EventBus.Type = viper.GetString("eventBus.type")
	}
	if viper.IsSet("eventBus.natsUrl") {
		cfg.EventBus.NATSUrl = viper.GetString("eventBus.natsUrl")
	}
	if viper.IsSet("scoring.workers") {
		cfg.Scoring.Workers = viper.GetInt("scoring.workers")
	}
	if viper.IsSet("scoring.zFlagThreshold") {
		cfg.Scoring.ZFlagThreshold = viper.GetFloat64("scoring.zFlagThreshold")
	}
	if viper.IsSet("scoring.mediumScore") {
		cfg.Scoring.MediumScore = viper.GetInt("scoring.mediumScore")
	}
	if viper.IsSet("scoring.criticalScore") {
		cfg.Scoring.CriticalScore = viper.GetInt("scoring.criticalScore")
	}
}

// setupLogging installs the default slog logger per config.
func setupLogging(cfg domain.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
