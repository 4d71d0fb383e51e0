package bridge

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robotalks/ambsi.go/pkg/env"
	"github.com/robotalks/ambsi.go/pkg/link"
)

// Config defines the options of the bridge.
type Config struct {
	// ID identifies the host, defaults to the protected machine ID.
	ID string
	// Node is the node address on the bus.
	Node uint
	// Version is the firmware version replied at RCAVersion, major.minor.patch.
	Version string
	// Ceiling is the countdown of each link phase.
	Ceiling uint
	// Retries of a forwarded monitor request.
	Retries int

	// MQTTBrokerURL specifies the MQTT broker carrying CAN frames.
	// e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL string
	// SerialPort is a serial CAN adapter streaming SocketCAN frames.
	SerialPort string
	SerialBaud int
	// WebsocketAddr is the listen address of the websocket frame endpoint.
	WebsocketAddr string

	// SensorPath is the w1_slave file of the temperature sensor.
	SensorPath string
	// SamplePeriod is the period of temperature sampling.
	SamplePeriod time.Duration
	// Interval is the period of the foreground loop.
	Interval time.Duration
	// Sim replaces the parallel lines with a simulated peer.
	Sim bool
}

var defaultConfig = Config{
	Version:       "1.0.0",
	Ceiling:       uint(link.MaxCeiling),
	Retries:       1,
	MQTTBrokerURL: "mqtt://localhost:1883/ambsi/",
	SerialBaud:    115200,
	SamplePeriod:  time.Second,
	Interval:      100 * time.Millisecond,
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

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Bridge ID, defaults to machine ID")
	flag.UintVar(&defaultConfig.Node, "node", defaultConfig.Node, "Node address on the bus")
	flag.StringVar(&defaultConfig.Version, "fw-version", defaultConfig.Version, "Firmware version major.minor.patch")
	flag.UintVar(&defaultConfig.Ceiling, "ceiling", defaultConfig.Ceiling, "Countdown of each link phase")
	flag.IntVar(&defaultConfig.Retries, "retries", defaultConfig.Retries, "Retries of forwarded monitor requests")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.StringVar(&defaultConfig.SerialPort, "serial", defaultConfig.SerialPort, "Serial CAN adapter port")
	flag.IntVar(&defaultConfig.SerialBaud, "baud", defaultConfig.SerialBaud, "Serial baud rate")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws", defaultConfig.WebsocketAddr, "Websocket listen address")
	flag.StringVar(&defaultConfig.SensorPath, "sensor", defaultConfig.SensorPath, "1-wire w1_slave file of the temperature sensor")
	flag.DurationVar(&defaultConfig.SamplePeriod, "sample-period", defaultConfig.SamplePeriod, "Temperature sampling period")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Loop interval")
	flag.BoolVar(&defaultConfig.Sim, "sim", defaultConfig.Sim, "Use a simulated peer")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NodeAddress returns Node as a byte.
func (c *Config) NodeAddress() byte {
	return byte(c.Node)
}

// BridgeID returns ID or the machine ID.
func (c *Config) BridgeID() string {
	if c.ID != "" {
		return c.ID
	}
	return env.MachineID()
}

// LinkConfig returns the Engine configuration.
func (c *Config) LinkConfig() link.Config {
	return link.Config{Ceiling: uint16(c.Ceiling), Retries: c.Retries}
}

// Validate checks the options.
func (c *Config) Validate() error {
	if c.Node > 0xff {
		return fmt.Errorf("invalid node address %d", c.Node)
	}
	if c.Ceiling == 0 || c.Ceiling > uint(link.MaxCeiling) {
		return fmt.Errorf("invalid ceiling %d", c.Ceiling)
	}
	if c.Retries < 0 {
		return fmt.Errorf("invalid retries %d", c.Retries)
	}
	_, err := ParseVersion(c.Version)
	return err
}

// ParseVersion parses major.minor.patch.
func ParseVersion(s string) (v [3]byte, err error) {
	var major, minor, patch uint
	if _, err = fmt.Sscanf(s, "%d.%d.%d", &major, &minor, &patch); err != nil {
		return v, fmt.Errorf("invalid version %q: %w", s, err)
	}
	if major > 0xff || minor > 0xff || patch > 0xff {
		return v, fmt.Errorf("invalid version %q", s)
	}
	return [3]byte{byte(major), byte(minor), byte(patch)}, nil
}
