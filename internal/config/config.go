// Package config loads liveframe settings from flags, LIVEFRAME_* environment
// variables and an optional liveframe.yaml file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Keys understood by Load. Flags bound with Bind use the same names with
// underscores replaced by dashes.
const (
	KeyOutDir    = "out_dir"
	KeyFrameRate = "frame_rate"
	KeyFormat    = "format"
	KeyContainer = "container"
	KeyStrict    = "strict"
	KeyDebug     = "debug"
)

// EnvPrefix prefixes every environment variable, e.g. LIVEFRAME_FRAME_RATE.
const EnvPrefix = "LIVEFRAME"

// Config holds the resolved settings of one CLI run.
type Config struct {
	OutDir    string
	FrameRate float64
	Format    string
	Container string
	Strict    bool
	Debug     bool
}

// New returns a viper instance with defaults, environment binding and the
// optional config file applied. A missing config file is not an error.
// configFile overrides the search path when set.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault(KeyOutDir, ".")
	v.SetDefault(KeyFrameRate, 30.0)
	v.SetDefault(KeyFormat, "annexb")
	v.SetDefault(KeyContainer, "avcc")
	v.SetDefault(KeyStrict, false)
	v.SetDefault(KeyDebug, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
		return v, nil
	}

	v.SetConfigName("liveframe")
	v.SetConfigType("yaml")
	for _, path := range []string{".", "$HOME/.liveframe", "/etc/liveframe"} {
		v.AddConfigPath(os.ExpandEnv(path))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return v, nil
}

// Bind attaches the flags in fs that correspond to known keys, so an
// explicitly set flag wins over environment and file values.
func Bind(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range []string{KeyOutDir, KeyFrameRate, KeyFormat, KeyContainer, KeyStrict, KeyDebug} {
		f := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	return nil
}

// Load resolves v into a Config. DEBUG in the environment also enables debug
// logging.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		OutDir:    v.GetString(KeyOutDir),
		FrameRate: v.GetFloat64(KeyFrameRate),
		Format:    v.GetString(KeyFormat),
		Container: strings.ToLower(v.GetString(KeyContainer)),
		Strict:    v.GetBool(KeyStrict),
		Debug:     v.GetBool(KeyDebug) || os.Getenv("DEBUG") != "",
	}
	if cfg.FrameRate <= 0 {
		return Config{}, fmt.Errorf("config: frame rate must be positive, got %v", cfg.FrameRate)
	}
	if cfg.Container != "avcc" && cfg.Container != "fmp4" {
		return Config{}, fmt.Errorf("config: unknown container %q", cfg.Container)
	}
	return cfg, nil
}
