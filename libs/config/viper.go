package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Source describes where a typed config struct is read from.
type Source struct {
	Name      string
	Paths     []string
	EnvPrefix string
	File      string
	Defaults  map[string]any
}

// Load reads the config file (if any), overlays environment variables and
// decodes the result into out. A missing config file is not an error.
func Load(src Source, out any) error {
	v := viper.New()
	v.SetConfigType("yaml")
	if src.File != "" {
		v.SetConfigFile(src.File)
	} else {
		v.SetConfigName(src.Name)
		for _, p := range src.Paths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(src.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range src.Defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if src.File != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := v.Unmarshal(out, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	return nil
}
