// Package config loads zerocheck settings from an optional YAML file, ZEROCHECK_*
// environment variables and bound command-line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"zerocheck/erase"
	"zerocheck/execute"
)

const (
	// EnvPrefix is prepended to every environment override, e.g. ZEROCHECK_TOOLS_NVME.
	EnvPrefix = "ZEROCHECK"
	fileName  = "zerocheck"
)

// UI modes.
const (
	UIAuto  = "auto"
	UITUI   = "tui"
	UIPlain = "plain"
)

// Config is the validated result of Load.
type Config struct {
	LogLevel    string
	LogFile     string
	Delay       time.Duration
	Seed        uint64
	ToolTimeout time.Duration
	UI          string
	Tools       Tools
	Markers     Markers

	// File is the config file actually read, empty if none was found.
	File string
}

type Tools struct {
	Hdparm string
	NVMe   string
	Lsblk  string
}

type Markers struct {
	SATA string
	NVMe string
}

// SetDefaults registers every key with its default so environment variables are
// picked up for keys absent from the file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("delay", time.Millisecond)
	v.SetDefault("seed", uint64(0))
	v.SetDefault("tool_timeout", execute.DefaultTimeout)
	v.SetDefault("ui", UIAuto)
	v.SetDefault("tools.hdparm", erase.DefaultHdparm)
	v.SetDefault("tools.nvme", erase.DefaultNVMe)
	v.SetDefault("tools.lsblk", "lsblk")
	v.SetDefault("markers.sata", erase.DefaultSATAMarker)
	v.SetDefault("markers.nvme", erase.DefaultNVMeMarker)
}

// Load reads configuration into v. An explicit file must exist; otherwise zerocheck.yaml
// is looked up in the working directory, $HOME/.config/zerocheck and /etc/zerocheck, and
// its absence is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(fileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", fileName))
		}
		v.AddConfigPath(filepath.Join("/etc", fileName))
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &nf) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	c := &Config{
		LogLevel:    strings.ToLower(v.GetString("log_level")),
		LogFile:     v.GetString("log_file"),
		Delay:       v.GetDuration("delay"),
		Seed:        v.GetUint64("seed"),
		ToolTimeout: v.GetDuration("tool_timeout"),
		UI:          strings.ToLower(v.GetString("ui")),
		Tools: Tools{
			Hdparm: v.GetString("tools.hdparm"),
			NVMe:   v.GetString("tools.nvme"),
			Lsblk:  v.GetString("tools.lsblk"),
		},
		Markers: Markers{
			SATA: v.GetString("markers.sata"),
			NVMe: v.GetString("markers.nvme"),
		},
		File: v.ConfigFileUsed(),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects values that would make a check meaningless.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "disabled", "off":
	default:
		return errors.Newf("log_level: unknown level %q", c.LogLevel)
	}
	switch c.UI {
	case UIAuto, UITUI, UIPlain:
	default:
		return errors.Newf("ui: want auto, tui or plain, got %q", c.UI)
	}
	if c.Delay < 0 {
		return errors.Newf("delay: must not be negative, got %s", c.Delay)
	}
	if c.ToolTimeout <= 0 {
		return errors.Newf("tool_timeout: must be positive, got %s", c.ToolTimeout)
	}
	if c.Tools.Hdparm == "" || c.Tools.NVMe == "" || c.Tools.Lsblk == "" {
		return errors.New("tools: hdparm, nvme and lsblk must not be empty")
	}
	if c.Markers.SATA == "" || c.Markers.NVMe == "" {
		return errors.New("markers: sata and nvme must not be empty")
	}
	return nil
}

// Verifier builds an erase verifier using the configured tools and markers.
func (c *Config) Verifier(r execute.Runner) *erase.Verifier {
	v := erase.New(r)
	v.HdparmPath = c.Tools.Hdparm
	v.NVMePath = c.Tools.NVMe
	v.SATAMarker = c.Markers.SATA
	v.NVMeMarker = c.Markers.NVMe
	return v
}
