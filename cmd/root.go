package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"camtrap-cli/internal/client"
	"camtrap-cli/internal/config"
	"camtrap-cli/internal/logging"
)

var cfgFile string
var jsonOutput bool

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "camtrap-cli",
	Short: "Operator console for a wildlife camera-trap monitoring server",
	Long: `Browse detections, watch a live dashboard and manage cameras on a
camera-trap monitoring server.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { config.InitConfig(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.camtrap-cli.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// setupClient loads the settings and builds a client for the configured server.
func setupClient() (*client.CamtrapClient, config.Settings) {
	settings, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	api := client.New(client.ClientConfig{
		BaseURL: settings.BaseURL,
		Timeout: settings.Timeout,
	})
	return api, settings
}

// newLogger writes to stderr so tables and JSON on stdout stay clean.
func newLogger(settings config.Settings) *slog.Logger {
	return logging.New(os.Stderr, logging.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
	})
}

// fail prints the error the way every command reports it and exits.
func fail(what string, err error) {
	fmt.Printf("Error %s: %v\n", what, err)
	os.Exit(1)
}
