// Package cfg provides configuration and command-line interface setup for grabarr.
package cfg

import (
	"context"
	"fmt"
	"os"
	"strings"

	"grabarr/internal/cmd"
	"grabarr/internal/domain/consts"
	"grabarr/internal/domain/keys"
	"grabarr/internal/domain/logger"
	"grabarr/internal/domain/paths"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "GRABARR"

var rootCmd = &cobra.Command{
	Use:           consts.ProgramName,
	Short:         "grabarr searches for, queues and downloads media as MP3 audio or MP4 video.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		// Setup flags from config file, falling back to ~/.grabarr/config.yaml when present
		configFile := paths.ConfigFilePath
		explicit := viper.IsSet(keys.ConfigFile)
		if explicit {
			configFile = viper.GetString(keys.ConfigFile)
		}

		if configFile != "" {
			cInfo, err := os.Stat(configFile)
			switch {
			case err != nil && !explicit && os.IsNotExist(err):
				configFile = ""
			case err != nil:
				return fmt.Errorf("failed check for config file path: %w", err)
			case cInfo.IsDir():
				return fmt.Errorf("config file %q is a directory, should be a file", configFile)
			}
		}

		if configFile != "" {
			// load and normalize keys from any Viper-supported config file
			if err := loadConfigFile(c, configFile); err != nil {
				return fmt.Errorf("failed loading config file: %w", err)
			}
		}

		logger.Pl.SetLevel(viper.GetInt(keys.DebugLevel))
		return nil
	},
}

// InitCommands initializes all commands and their flags.
func InitCommands(ctx context.Context) error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_")) // GRABARR_FFMPEG_PATH sets "ffmpeg-path"
	viper.AutomaticEnv()

	if err := cmd.InitProgramFlags(rootCmd); err != nil {
		return err
	}
	if err := cmd.InitEngineFlags(rootCmd); err != nil {
		return err
	}
	if err := cmd.InitThumbnailFlags(rootCmd); err != nil {
		return err
	}

	download, err := initDownloadCmd(ctx)
	if err != nil {
		return err
	}
	serve, err := initServeCmd(ctx)
	if err != nil {
		return err
	}

	rootCmd.AddCommand(download, serve, initSearchCmd(ctx), initProbeCmd(ctx))
	return nil
}

// Execute runs the command tree.
func Execute() error {
	return rootCmd.Execute()
}
