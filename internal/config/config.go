package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	fileName  = ".camtrap-cli"
	envPrefix = "CAMTRAP"
)

// ErrNotConnected is returned by Load when no server has been configured yet.
var ErrNotConnected = errors.New("no server configured, run 'camtrap-cli connect' first")

// Settings is the typed view of the config file and CAMTRAP_* environment.
type Settings struct {
	BaseURL string
	Timeout time.Duration

	LogLevel  string
	LogFormat string

	CacheTTL time.Duration

	TickerInterval time.Duration
	TickerSize     int

	LiveTransport  string // sse or mqtt
	LiveMaxBackoff time.Duration
	LiveMaxElapsed time.Duration

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string

	FeedRetryDelay time.Duration
}

func setDefaults() {
	viper.SetDefault("timeout", "10s")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("cache.ttl", "5m")
	viper.SetDefault("ticker.interval", "10s")
	viper.SetDefault("ticker.size", 5)
	viper.SetDefault("live.transport", "sse")
	viper.SetDefault("live.max_backoff", "30s")
	viper.SetDefault("live.max_elapsed", "0s")
	viper.SetDefault("mqtt.topic", "camtrap/detections")
	viper.SetDefault("mqtt.client_id", "camtrap-cli")
	viper.SetDefault("feed.retry_delay", "2s")
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig(cfgFile string) {
	setDefaults()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".camtrap-cli" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(fileName)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing file is fine; every key has a default or a flag
	_ = viper.ReadInConfig()
}

// Load returns the current settings. It fails with ErrNotConnected when no
// base URL is configured.
func Load() (Settings, error) {
	s := Settings{
		BaseURL:        strings.TrimRight(viper.GetString("base_url"), "/"),
		Timeout:        viper.GetDuration("timeout"),
		LogLevel:       viper.GetString("log.level"),
		LogFormat:      viper.GetString("log.format"),
		CacheTTL:       viper.GetDuration("cache.ttl"),
		TickerInterval: viper.GetDuration("ticker.interval"),
		TickerSize:     viper.GetInt("ticker.size"),
		LiveTransport:  strings.ToLower(viper.GetString("live.transport")),
		LiveMaxBackoff: viper.GetDuration("live.max_backoff"),
		LiveMaxElapsed: viper.GetDuration("live.max_elapsed"),
		MQTTBroker:     viper.GetString("mqtt.broker"),
		MQTTTopic:      viper.GetString("mqtt.topic"),
		MQTTClientID:   viper.GetString("mqtt.client_id"),
		MQTTUsername:   viper.GetString("mqtt.username"),
		MQTTPassword:   viper.GetString("mqtt.password"),
		FeedRetryDelay: viper.GetDuration("feed.retry_delay"),
	}

	if s.BaseURL == "" {
		return s, ErrNotConnected
	}
	switch s.LiveTransport {
	case "sse", "":
		s.LiveTransport = "sse"
	case "mqtt":
		if s.MQTTBroker == "" {
			return s, errors.New("live.transport is mqtt but mqtt.broker is not set")
		}
	default:
		return s, fmt.Errorf("unknown live.transport %q (want sse or mqtt)", s.LiveTransport)
	}
	if s.TickerSize <= 0 {
		s.TickerSize = 5
	}
	return s, nil
}

// SaveServer records the server URL in the config file.
func SaveServer(baseURL string) error {
	viper.Set("base_url", strings.TrimRight(baseURL, "/"))

	// Ensure the file exists before writing
	if err := viper.WriteConfig(); err != nil {
		// If file doesn't exist, create it
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return viper.SafeWriteConfig()
		}
		// If it exists but failed to write, try writing to default path
		home, _ := os.UserHomeDir()
		path := filepath.Join(home, fileName+".yaml")
		return viper.WriteConfigAs(path)
	}
	return nil
}
