package cli

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"online-quiz/internal/config"
)

const serviceName = "online-quiz"

// Execute runs the CLI. A .env file in the working directory is loaded first
// when present.
func Execute() error {
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Online pub quiz backed by an append-only event log",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().String("config", "config/config.yaml", "path to YAML config")
	cmd.PersistentFlags().String("port", "", "port to listen on (overrides config)")
	cmd.PersistentFlags().String("store", "", "event log backend: memory, file, redis, sqlite, postgres (overrides config)")
	cmd.AddCommand(NewStartCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewReportCmd())
	return cmd
}

// viperForCmd binds a command's flags and QUIZ_* environment variables.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())
	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig reads the YAML file named by --config / QUIZ_CONFIG and applies
// flag and environment overrides on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := viperForCmd(cmd)
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return cfg, err
	}
	if port := v.GetString("port"); port != "" {
		cfg.Server.Port = port
	}
	if backend := v.GetString("store"); backend != "" {
		cfg.Store.Backend = backend
	}
	return cfg, nil
}
