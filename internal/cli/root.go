// Package cli implements resumectl, a local tool for structuring resumes and
// streaming insights from a local model without the API server.
package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/logger"
)

const app = "resumectl"

// Actual version can be specified in build command.
var version = "unknown"

type Config struct {
	Ollama             OllamaConfig  `mapstructure:"ollama"`
	InsightResumeLimit int           `mapstructure:"insight-resume-limit"`
	Timeout            time.Duration `mapstructure:"timeout"`
	Debug              bool          `mapstructure:"debug"`
	JSON               bool          `mapstructure:"json"`
}

type OllamaConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// NewRootCmd builds the command tree with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	root := &cobra.Command{
		Use:           app,
		Short:         "resumectl structures resumes and streams AI insights from a local model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return readConfig(v, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resumectl.yaml in current directory)")
	root.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	root.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	root.PersistentFlags().String("ollama-url", "", "local model endpoint (env OLLAMA_URL)")
	root.PersistentFlags().String("ollama-model", "", "local model name (env OLLAMA_MODEL)")

	v.SetDefault("ollama.url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3")
	v.SetDefault("insight-resume-limit", 3000)
	v.SetDefault("timeout", "60s")

	_ = v.BindEnv("ollama.url", "OLLAMA_URL")
	_ = v.BindEnv("ollama.model", "OLLAMA_MODEL")
	_ = v.BindEnv("insight-resume-limit", "INSIGHT_RESUME_LIMIT")
	_ = v.BindEnv("timeout", "REQUEST_TIMEOUT")

	_ = v.BindPFlag("debug", root.PersistentFlags().Lookup("debug"))
	_ = v.BindPFlag("json", root.PersistentFlags().Lookup("json"))
	_ = v.BindPFlag("ollama.url", root.PersistentFlags().Lookup("ollama-url"))
	_ = v.BindPFlag("ollama.model", root.PersistentFlags().Lookup("ollama-model"))

	root.AddCommand(newStructureCmd(), newInsightCmd(v), newVersionCmd())
	return root
}

// Execute executes the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// readConfig loads the optional config file. A missing default file is fine;
// an explicit --config that cannot be read is not.
func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(app)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

func getConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &config, nil
}

func newLogger(cfg *Config) (*zap.Logger, error) {
	return logger.New(cfg.JSON, cfg.Debug)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s\n", app, version)
		},
	}
}
