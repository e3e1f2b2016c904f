// Package config loads the daemon configuration from defaults, an optional
// TOML file, X728D_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/x728-supervisor/internal/battery"
	"github.com/sweeney/x728-supervisor/internal/errors"
	"github.com/sweeney/x728-supervisor/internal/gpio"
	"github.com/sweeney/x728-supervisor/internal/logger"
	"github.com/sweeney/x728-supervisor/internal/logic"
	"github.com/sweeney/x728-supervisor/internal/system"
	"github.com/sweeney/x728-supervisor/internal/thermal"
)

const (
	configName = "x728d"
	configDir  = "/etc"
	envPrefix  = "X728D"
)

// Config is the immutable daemon configuration.
type Config struct {
	File       string // config file actually read, empty if none
	Interval   time.Duration
	Heartbeat  time.Duration // 0 disables heartbeats
	LogLevel   string
	PrintState bool

	Fan               FanConfig
	BatteryLowPercent float64
	Button            ButtonConfig
	PowerOffHold      time.Duration

	GPIO         gpio.Pins
	I2C          battery.Config
	ThermalPath  string
	SystemMethod string

	MQTT     MQTTConfig
	HTTPAddr string // empty disables the status server
}

// FanConfig controls the hysteresis fan.
type FanConfig struct {
	Enabled bool
	OnC     int
	OffC    int
}

// ButtonConfig bounds the reboot pulse and sets the release sampling period.
type ButtonConfig struct {
	RebootMin time.Duration
	RebootMax time.Duration
	Sample    time.Duration
}

// MQTTConfig selects the event feed broker.
type MQTTConfig struct {
	Broker   string // empty disables publishing
	ClientID string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", 5*time.Second)
	v.SetDefault("heartbeat", 15*time.Minute)
	v.SetDefault("log.level", logger.DefaultLevel)
	v.SetDefault("print_state", false)
	v.SetDefault("fan.enabled", true)
	v.SetDefault("fan.on_c", 45)
	v.SetDefault("fan.off_c", 40)
	v.SetDefault("battery.low_percent", 15)
	v.SetDefault("button.reboot_min", 600*time.Millisecond)
	v.SetDefault("button.reboot_max", 900*time.Millisecond)
	v.SetDefault("button.sample", 200*time.Millisecond)
	v.SetDefault("poweroff.hold", 4*time.Second)
	v.SetDefault("gpio.chip", gpio.DefaultChip)
	v.SetDefault("gpio.ac_detect", gpio.DefaultACDetect)
	v.SetDefault("gpio.button", gpio.DefaultButton)
	v.SetDefault("gpio.boot", gpio.DefaultBoot)
	v.SetDefault("gpio.poweroff", gpio.DefaultPowerOff)
	v.SetDefault("gpio.fan", gpio.DefaultFan)
	v.SetDefault("i2c.bus", battery.DefaultBus)
	v.SetDefault("i2c.addr", battery.DefaultAddr)
	v.SetDefault("i2c.retries", 0)
	v.SetDefault("i2c.rate", 50)
	v.SetDefault("thermal.path", thermal.DefaultPath)
	v.SetDefault("system.method", system.MethodLogind)
	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.client_id", "x728d")
	v.SetDefault("http.addr", "")
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("x728d", pflag.ContinueOnError)
	fs.String("config", "", "Path to TOML config file (default /etc/x728d.toml if present)")
	fs.Duration("interval", 5*time.Second, "Supervision interval")
	fs.Duration("heartbeat", 15*time.Minute, "Heartbeat interval for MQTT status (0 to disable)")
	fs.String("log-level", logger.DefaultLevel, "Log level: debug, info, warn, error")
	fs.Bool("print-state", false, "Print AC, battery and temperature once and exit")
	fs.Bool("fan", true, "Enable fan control")
	fs.Int("fan-on", 45, "Fan on temperature (C)")
	fs.Int("fan-off", 40, "Fan off temperature (C)")
	fs.Float64("battery-low", 15, "Battery capacity (%) that triggers shutdown on battery power")
	fs.String("system-method", system.MethodLogind, "Shutdown/reboot method: logind or command")
	fs.String("mqtt-broker", "", "MQTT broker URL (empty to disable)")
	fs.String("http-addr", "", "Status server listen address (empty to disable)")
	return fs
}

var flagKeys = map[string]string{
	"interval":      "interval",
	"heartbeat":     "heartbeat",
	"log-level":     "log.level",
	"print-state":   "print_state",
	"fan":           "fan.enabled",
	"fan-on":        "fan.on_c",
	"fan-off":       "fan.off_c",
	"battery-low":   "battery.low_percent",
	"system-method": "system.method",
	"mqtt-broker":   "mqtt.broker",
	"http-addr":     "http.addr",
}

// Load parses args (without the program name) and returns a validated
// Config. pflag.ErrHelp is returned unwrapped when --help is given.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil, err
		}
		return nil, errors.Wrap(errors.CodeInvalidConfig, "parse flags", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errors.Wrap(errors.CodeInvalidConfig, "bind flag "+name, err)
		}
	}

	if err := readFile(v, fs); err != nil {
		return nil, err
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readFile(v *viper.Viper, fs *pflag.FlagSet) error {
	v.SetConfigType("toml")

	path, _ := fs.GetString("config")
	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrap(errors.CodeInvalidConfig, "read config "+path, err)
		}
		return nil
	}

	v.SetConfigName(configName)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return errors.Wrap(errors.CodeInvalidConfig, "read config", err)
		}
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		File:              v.ConfigFileUsed(),
		Interval:          v.GetDuration("interval"),
		Heartbeat:         v.GetDuration("heartbeat"),
		LogLevel:          v.GetString("log.level"),
		PrintState:        v.GetBool("print_state"),
		BatteryLowPercent: v.GetFloat64("battery.low_percent"),
		PowerOffHold:      v.GetDuration("poweroff.hold"),
		ThermalPath:       v.GetString("thermal.path"),
		SystemMethod:      v.GetString("system.method"),
		HTTPAddr:          v.GetString("http.addr"),
	}
	cfg.Fan = FanConfig{
		Enabled: v.GetBool("fan.enabled"),
		OnC:     v.GetInt("fan.on_c"),
		OffC:    v.GetInt("fan.off_c"),
	}
	cfg.Button = ButtonConfig{
		RebootMin: v.GetDuration("button.reboot_min"),
		RebootMax: v.GetDuration("button.reboot_max"),
		Sample:    v.GetDuration("button.sample"),
	}
	cfg.GPIO = gpio.Pins{
		Chip:       v.GetString("gpio.chip"),
		ACDetect:   v.GetInt("gpio.ac_detect"),
		Button:     v.GetInt("gpio.button"),
		Boot:       v.GetInt("gpio.boot"),
		PowerOff:   v.GetInt("gpio.poweroff"),
		Fan:        v.GetInt("gpio.fan"),
		FanEnabled: cfg.Fan.Enabled,
	}
	cfg.I2C = battery.Config{
		Bus:     v.GetString("i2c.bus"),
		Addr:    uint16(v.GetUint("i2c.addr")),
		Retries: v.GetInt("i2c.retries"),
		Rate:    v.GetFloat64("i2c.rate"),
	}
	cfg.MQTT = MQTTConfig{
		Broker:   v.GetString("mqtt.broker"),
		ClientID: v.GetString("mqtt.client_id"),
	}
	return cfg
}

// Thresholds returns the decision parameters for the logic package.
func (c *Config) Thresholds() logic.Thresholds {
	return logic.Thresholds{
		FanEnabled:        c.Fan.Enabled,
		FanOnC:            c.Fan.OnC,
		FanOffC:           c.Fan.OffC,
		BatteryLowPercent: c.BatteryLowPercent,
		RebootPulseMin:    c.Button.RebootMin,
		RebootPulseMax:    c.Button.RebootMax,
	}
}

// Validate checks the thresholds and the remaining settings. All failures
// match errors.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return invalid("interval must be positive, got %s", c.Interval)
	}
	if c.Heartbeat < 0 {
		return invalid("heartbeat must not be negative, got %s", c.Heartbeat)
	}
	if c.Button.Sample <= 0 {
		return invalid("button sample interval must be positive, got %s", c.Button.Sample)
	}
	if c.PowerOffHold < 0 {
		return invalid("poweroff hold must not be negative, got %s", c.PowerOffHold)
	}
	if c.I2C.Addr == 0 || c.I2C.Addr > 0x7f {
		return invalid("i2c address 0x%x out of range", c.I2C.Addr)
	}
	if c.I2C.Retries < 0 {
		return invalid("i2c retries must not be negative, got %d", c.I2C.Retries)
	}
	if c.I2C.Rate < 0 {
		return invalid("i2c rate must not be negative, got %g", c.I2C.Rate)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(errors.CodeInvalidConfig, "log level", err)
	}
	switch c.SystemMethod {
	case system.MethodLogind, system.MethodCommand:
	default:
		return invalid("unknown system method %q", c.SystemMethod)
	}
	for name, pin := range map[string]int{
		"ac_detect": c.GPIO.ACDetect,
		"button":    c.GPIO.Button,
		"poweroff":  c.GPIO.PowerOff,
		"fan":       c.GPIO.Fan,
	} {
		if pin < 0 {
			return invalid("gpio.%s must not be negative, got %d", name, pin)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.Newf(errors.CodeInvalidConfig, format, args...)
}

// String renders the effective configuration for the startup log.
func (c *Config) String() string {
	return fmt.Sprintf("interval=%s fan=%t(%d/%dC) battery_low=%.0f%% reboot=%s-%s hold=%s broker=%q http=%q",
		c.Interval, c.Fan.Enabled, c.Fan.OnC, c.Fan.OffC, c.BatteryLowPercent,
		c.Button.RebootMin, c.Button.RebootMax, c.PowerOffHold, c.MQTT.Broker, c.HTTPAddr)
}
