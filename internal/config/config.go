// ABOUTME: Command-line and file configuration for the meter
// ABOUTME: Defines flags with pflag, layers config file and environment with viper
package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/Resonate-Protocol/peakmeter/pkg/meter"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Configuration defaults.
const (
	DefaultRate      = 8
	DefaultWidth     = 79
	DefaultChannels  = 1
	DefaultHost      = "jack"
	DefaultToneFreq  = 440.0
	DefaultToneLevel = -12.0
	MaxWidth         = 1000
	MaxVerbosity     = 3
	EnvPrefix        = "PEAKMETER"
)

// Hosts lists the supported audio host backends.
var Hosts = []string{"jack", "malgo", "portaudio", "file", "tone"}

// Config holds the resolved meter configuration.
type Config struct {
	Rate       int
	RefLevel   float64
	Width      int // 0 selects the terminal width
	Channels   int
	Numeric    bool
	Verbosity  int
	ServerName string

	Host      string
	Device    string
	File      string
	Monitor   bool
	ToneFreq  float64
	ToneLevel float64

	TUI       bool
	Listen    string
	Advertise bool
	LogFile   string

	Ports       []string
	ShowVersion bool
}

// NewFlagSet defines every meter flag on a new flag set.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false

	fs.IntP("freq", "f", DefaultRate, "how often to update the meter per second")
	fs.Float64P("ref", "r", 0, "reference signal level for 0dB on the meter")
	fs.IntP("width", "w", DefaultWidth, "how wide to make the meter (0 = terminal width)")
	fs.IntP("channels", "c", DefaultChannels, fmt.Sprintf("number of channels to meter (max %d)", meter.MaxChannels))
	fs.BoolP("numeric", "n", false, "output meter level as number in decibels")
	fs.CountP("verbose", "v", "print more status information (repeatable)")
	fs.BoolP("quiet", "q", false, "print no status lines")
	fs.StringP("server", "s", "", "name of the JACK server to connect to")
	fs.String("host", DefaultHost, "audio host: "+strings.Join(Hosts, ", "))
	fs.String("device", "", "capture device name (malgo, portaudio)")
	fs.String("file", "", "audio file to meter (file host)")
	fs.Bool("monitor", false, "play the file while metering it (file host)")
	fs.Float64("tone-freq", DefaultToneFreq, "test tone frequency in Hz (tone host)")
	fs.Float64("tone-level", DefaultToneLevel, "test tone level in dBFS (tone host)")
	fs.Bool("tui", false, "full-screen display")
	fs.String("listen", "", "serve a websocket level feed on this address")
	fs.Bool("advertise", false, "advertise the level feed via mDNS")
	fs.String("log-file", "", "write logs to this file (without it, logs reach stderr only in numeric mode)")
	fs.String("config", "", "config file (yaml, toml or json)")
	fs.BoolP("version", "V", false, "print version information and exit")

	return fs
}

// Load parses args, then layers environment variables and an optional config
// file underneath flags that were set explicitly.
func Load(args []string, usageOut io.Writer) (*Config, error) {
	fs := NewFlagSet("peakmeter")
	fs.SetOutput(usageOut)
	fs.Usage = func() {
		fmt.Fprintf(usageOut, "Usage: peakmeter [options] [<port>, ...]\n\n")
		fmt.Fprintf(usageOut, "  <port>  the port(s) to monitor; port N is connected to channel N mod channels\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := fromViper(v)
	cfg.Ports = fs.Args()
	if len(cfg.Ports) == 0 {
		cfg.Ports = v.GetStringSlice("ports")
	}

	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	verbosity := 1 + v.GetInt("verbose")
	if v.GetBool("quiet") {
		verbosity = 0
	}

	return &Config{
		Rate:        v.GetInt("freq"),
		RefLevel:    v.GetFloat64("ref"),
		Width:       v.GetInt("width"),
		Channels:    v.GetInt("channels"),
		Numeric:     v.GetBool("numeric"),
		Verbosity:   min(verbosity, MaxVerbosity),
		ServerName:  v.GetString("server"),
		Host:        strings.ToLower(v.GetString("host")),
		Device:      v.GetString("device"),
		File:        v.GetString("file"),
		Monitor:     v.GetBool("monitor"),
		ToneFreq:    v.GetFloat64("tone-freq"),
		ToneLevel:   v.GetFloat64("tone-level"),
		TUI:         v.GetBool("tui"),
		Listen:      v.GetString("listen"),
		Advertise:   v.GetBool("advertise"),
		LogFile:     v.GetString("log-file"),
		ShowVersion: v.GetBool("version"),
	}
}

// Validate checks every field and returns the first failure.
func (c *Config) Validate() error {
	checks := []*ValidationError{
		ValidateRange("freq", c.Rate, 1, 1000),
		ValidateRange("width", c.Width, 0, MaxWidth),
		ValidateRange("channels", c.Channels, 1, meter.MaxChannels),
		ValidateRangeFloat("ref", c.RefLevel, -200, 200),
		ValidateOneOf("host", c.Host, Hosts),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if c.Host == "file" {
		if err := ValidateRequired("file", c.File); err != nil {
			return err
		}
	}
	if c.Host == "tone" {
		if err := ValidateRangeFloat("tone-freq", c.ToneFreq, 1, 20000); err != nil {
			return err
		}
		if err := ValidateRangeFloat("tone-level", c.ToneLevel, -120, 0); err != nil {
			return err
		}
	}
	if c.Advertise && c.Listen == "" {
		return &ValidationError{Field: "advertise", Message: "advertise requires listen"}
	}
	if c.Numeric && c.TUI {
		return &ValidationError{Field: "tui", Message: "tui and numeric are mutually exclusive"}
	}

	return nil
}
