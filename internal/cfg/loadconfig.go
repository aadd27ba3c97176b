package cfg

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"grabarr/internal/domain/logger"
)

// loadConfigFile reads a Viper-supported config file and applies its values to every flag
// the user did not set on the command line.
func loadConfigFile(c *cobra.Command, configFile string) error {
	fileCfg := viper.New()
	fileCfg.SetConfigFile(configFile)
	if err := fileCfg.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %q: %w", configFile, err)
	}
	logger.Pl.D(1, "Loaded config file %q", configFile)

	// Accept both "ffmpeg-path" and "ffmpeg_path" style keys
	values := make(map[string]any, len(fileCfg.AllKeys()))
	for _, k := range fileCfg.AllKeys() {
		values[strings.ReplaceAll(k, "_", "-")] = fileCfg.Get(k)
	}

	var errOrNil error
	c.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		val, ok := values[f.Name]
		if !ok {
			return
		}

		if sv, isSlice := f.Value.(pflag.SliceValue); isSlice {
			if err := sv.Replace(cast.ToStringSlice(val)); err != nil {
				errOrNil = fmt.Errorf("config key %q: %w", f.Name, err)
			}
			return
		}
		s, err := cast.ToStringE(val)
		if err != nil {
			errOrNil = fmt.Errorf("config key %q: %w", f.Name, err)
			return
		}
		if err := f.Value.Set(s); err != nil {
			errOrNil = fmt.Errorf("config key %q: %w", f.Name, err)
		}
	})
	return errOrNil
}
