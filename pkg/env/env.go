// Package env provides the common configuration of the commands.
package env

import (
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/firmata.go/pkg/firmata"
	"github.com/robotalks/firmata.go/pkg/transport/serial"
	"github.com/robotalks/firmata.go/pkg/transport/websocket"
)

// Config is the configuration shared by the commands.
type Config struct {
	// Port is a serial device path, serial://<path> or a ws(s):// URL.
	Port string
	// BaudRate of the serial port.
	BaudRate int
	// Board is the name of a known board model, empty to negotiate.
	Board string
	// Settle overrides the settle time when non-negative.
	Settle time.Duration
	// MQTTBrokerURL specifies the MQTT broker to use,
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// ID identifies the board on the MQTT broker.
	ID string
}

var defaultConfig = Config{
	BaudRate:      serial.DefaultBaudRate,
	Settle:        -1,
	MQTTBrokerURL: "mqtt://localhost:1883/firmata/",
}

func init() {
	if val := os.Getenv("FIRMATA_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("FIRMATA_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = baud
		}
	}
	if val := os.Getenv("FIRMATA_BOARD"); val != "" {
		defaultConfig.Board = val
	}
	if val := os.Getenv("FIRMATA_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("FIRMATA_ID"); val != "" {
		defaultConfig.ID = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Serial port or ws:// URL of the board.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
	flag.StringVar(&defaultConfig.Board, "board", defaultConfig.Board, "Board model, negotiated if empty.")
	flag.DurationVar(&defaultConfig.Settle, "settle", defaultConfig.Settle, "Time to wait for the board to boot, default if negative.")
}

// SetupMQTTFlags sets up flags for MQTT.
func SetupMQTTFlags() {
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL.")
	flag.StringVar(&defaultConfig.ID, "id", defaultConfig.ID, "Board ID on MQTT, machine ID if empty.")
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

// MachineID retrieves the unique ID identifying the machine.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		panic(err)
	}
	return id
}

// BoardID returns ID or the machine ID.
func (c *Config) BoardID() string {
	if c.ID != "" {
		return c.ID
	}
	return MachineID()
}

// Open opens the transport selected by Port.
func (c *Config) Open() (firmata.Transport, error) {
	if c.Port == "" {
		return nil, fmt.Errorf("port must be specified")
	}
	if !strings.Contains(c.Port, "://") {
		return serial.Open(serial.Config{Port: c.Port, BaudRate: c.BaudRate})
	}
	u, err := url.Parse(c.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid port URL: %w", err)
	}
	switch u.Scheme {
	case "serial":
		return serial.Open(serial.Config{Port: u.Host + u.Path, BaudRate: c.BaudRate})
	case "ws", "wss":
		return websocket.Dial(c.Port, "")
	default:
		return nil, fmt.Errorf("unknown port URL scheme: %q", u.Scheme)
	}
}

// BoardConfig creates the firmata.Config.
func (c *Config) BoardConfig() (firmata.Config, error) {
	conf := firmata.DefaultConfig()
	conf.Name = c.Port
	if c.Board != "" {
		model, ok := firmata.BoardModels[c.Board]
		if !ok {
			return conf, fmt.Errorf("unknown board %q", c.Board)
		}
		conf.Layout = model.Layout()
	}
	switch {
	case c.Settle >= 0:
		conf.SettleTime = c.Settle
	case strings.HasPrefix(c.Port, "ws://") || strings.HasPrefix(c.Port, "wss://"):
		// no reset on connect.
		conf.SettleTime = 0
	}
	return conf, nil
}

// OpenBoard opens the transport and sets up the board.
func (c *Config) OpenBoard() (*firmata.Board, error) {
	conf, err := c.BoardConfig()
	if err != nil {
		return nil, err
	}
	conn, err := c.Open()
	if err != nil {
		return nil, err
	}
	b, err := firmata.New(conn, conf)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return b, nil
}

// MustOpenBoard opens the board and fails on error.
func (c *Config) MustOpenBoard() *firmata.Board {
	b, err := c.OpenBoard()
	if err != nil {
		log.Fatalln(err)
	}
	return b
}
