package sh

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config provides options to reach a bridge node.
type Config struct {
	// MQTTBrokerURL specifies the broker the bridge is attached to.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
	// WebsocketURL connects the bridge websocket endpoint directly,
	// it takes precedence over MQTTBrokerURL.
	WebsocketURL string
	Node         uint
	Timeout      time.Duration
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/ambsi/",
	Timeout:       time.Second,
}

func init() {
	if val := os.Getenv("AMBSI_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("AMBSI_NODE"); val != "" {
		if node, err := strconv.ParseUint(val, 0, 8); err == nil {
			defaultConfig.Node = uint(node)
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.WebsocketURL, "ws", defaultConfig.WebsocketURL, "Bridge websocket URL.")
	flag.UintVar(&defaultConfig.Node, "node", defaultConfig.Node, "Node address of the bridge.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Reply timeout.")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}
