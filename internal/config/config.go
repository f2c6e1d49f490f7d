// Package config loads enigma's configuration file and region alias table.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/go-playground/validator.v9"

	"github.com/blackwell-systems/enigma/internal/log"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. ENIGMA_DATA_DIR or ENIGMA_WATCH_DEBOUNCE.
const EnvPrefix = "ENIGMA"

// Config holds the settings shared by all commands.
type Config struct {
	// DataDir is the root of the ENIGMA data layout (parcellations, surfaces,
	// matrices, summary_statistics, permutation).
	DataDir string `mapstructure:"data_dir" validate:"required"`

	// DBPath is the SQLite database holding runs and cached permutations.
	DBPath string `mapstructure:"db_path" validate:"required"`

	// ReportDir is where exported run reports are written.
	ReportDir string `mapstructure:"report_dir" validate:"required"`

	// NRot is the default number of spin rotations or shuffles.
	NRot int `mapstructure:"n_rot" validate:"min=1,max=100000"`

	// Seed seeds permutation generation; equal seeds give equal nulls.
	Seed int64 `mapstructure:"seed"`

	// Correlation is "pearson" or "spearman".
	Correlation string `mapstructure:"correlation" validate:"oneof=pearson spearman"`

	// Workers bounds permutation goroutines.
	Workers int `mapstructure:"workers" validate:"min=1,max=512"`

	// Alpha is the significance level used when flagging epicenters.
	Alpha float64 `mapstructure:"alpha" validate:"gt=0,lt=1"`

	// HubThreshold flags hubs with degree above mean + HubThreshold*sd.
	HubThreshold float64 `mapstructure:"hub_threshold" validate:"min=0"`

	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warning error"`

	Watch WatchConfig `mapstructure:"watch"`
}

// WatchConfig configures the input watcher.
type WatchConfig struct {
	// Debounce is the quiet period after the last change before a rerun.
	Debounce time.Duration `mapstructure:"debounce" validate:"min=0"`

	// Analysis is the analysis rerun on change: "hubs" or "epicenter".
	Analysis string `mapstructure:"analysis" validate:"oneof=hubs epicenter"`

	Kind         string `mapstructure:"kind" validate:"oneof=sc fc"`
	Parcellation string `mapstructure:"parcellation" validate:"required"`
	Disorder     string `mapstructure:"disorder"`
	Measure      string `mapstructure:"measure"`
	Column       string `mapstructure:"column"`
	MapPath      string `mapstructure:"map"`
}

// Dir returns the enigma config directory, respecting XDG_CONFIG_HOME.
// Defaults to ~/.config/enigma if XDG_CONFIG_HOME is not set.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "enigma"), nil
}

// StateDir returns ~/.enigma, the default home of the database, data and
// reports.
func StateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".enigma"), nil
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	state, err := StateDir()
	if err != nil {
		state = ".enigma"
	}

	keys := map[string]interface{}{
		"data_dir":           filepath.Join(state, "data"),
		"db_path":            filepath.Join(state, "enigma.db"),
		"report_dir":         filepath.Join(state, "reports"),
		"n_rot":              1000,
		"seed":               0,
		"correlation":        "pearson",
		"workers":            runtime.NumCPU(),
		"alpha":              0.05,
		"hub_threshold":      1.0,
		"log_level":          "warning",
		"watch.debounce":     "2s",
		"watch.analysis":     "hubs",
		"watch.kind":         "sc",
		"watch.parcellation": "aparc",
		"watch.disorder":     "",
		"watch.measure":      "",
		"watch.column":       "d_icv",
		"watch.map":          "",
	}
	for k, value := range keys {
		v.SetDefault(k, value)
	}
}

// Load reads the config file at path, or config.{yaml,toml,json} from Dir()
// and the working directory when path is empty. A missing default file is
// not an error; a missing explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		log.Debugf("no config file found, using defaults")
	} else {
		log.Debugf("using config file %s", v.ConfigFileUsed())
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.ReportDir = expandHome(cfg.ReportDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration made of defaults and environment only.
func Default() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.DBPath = expandHome(cfg.DBPath)
	cfg.ReportDir = expandHome(cfg.ReportDir)
	return cfg, cfg.Validate()
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config value for %s: failed %q rule (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
