package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// config is read from flags or the environment. The peer sets
// CHAINCODE_SERVER_ADDRESS and CHAINCODE_ID for external chaincode.
type config struct {
	ServerAddress string `mapstructure:"chaincode-server-address" validate:"omitempty,hostname_port"`
	ChaincodeID   string `mapstructure:"chaincode-id" validate:"required_with=ServerAddress"`
	TLSDisabled   bool   `mapstructure:"tls-disabled"`
	TLSKeyFile    string `mapstructure:"tls-key-file" validate:"required_with=TLSCertFile"`
	TLSCertFile   string `mapstructure:"tls-cert-file" validate:"required_with=TLSKeyFile"`
	ClientCAFile  string `mapstructure:"tls-client-ca-file"`
	MetricsAddr   string `mapstructure:"metrics-address" validate:"omitempty,hostname_port"`
	LogLevel      string `mapstructure:"log-level" validate:"oneof=trace debug info warn error"`
	LogFormat     string `mapstructure:"log-format" validate:"oneof=json console"`
}

var rootCmd = &cobra.Command{
	Use:   "supply-chain-visibility",
	Short: "Manufacturing supply chain visibility chaincode",
	Long: "Runs the entity registry, component, delivery and quality contracts, " +
		"either launched by the peer or as an external chaincode service.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		return run(cfg, log)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("chaincode-server-address", "", "listen address for external service mode, empty to run under the peer")
	flags.String("chaincode-id", "", "chaincode package id assigned by the peer")
	flags.Bool("tls-disabled", false, "serve the external chaincode without TLS")
	flags.String("tls-key-file", "", "PEM private key for the chaincode server")
	flags.String("tls-cert-file", "", "PEM certificate for the chaincode server")
	flags.String("tls-client-ca-file", "", "PEM CA used to verify the peer, empty to skip client auth")
	flags.String("metrics-address", "", "address for the Prometheus endpoint, empty disables it")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, console)")

	_ = viper.BindPFlags(flags)

	cobra.OnInitialize(initConfig)
}

func initConfig() {
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func loadConfig() (*config, error) {
	var cfg config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.ServerAddress != "" && !cfg.TLSDisabled && cfg.TLSCertFile == "" {
		return nil, fmt.Errorf("invalid configuration: tls-key-file and tls-cert-file are required unless tls-disabled is set")
	}
	return &cfg, nil
}

func newLogger(cfg *config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	log := zerolog.New(os.Stderr)
	if cfg.LogFormat == "console" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(level).With().Timestamp().Str("service", "supply-chain-visibility").Logger(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
