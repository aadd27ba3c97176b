// Package paths initializes grabarr's filepaths, directories, etc.
package paths

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"grabarr/internal/domain/consts"
)

const (
	gDir       = ".grabarr"
	logFile    = "grabarr.log"
	configFile = "config.yaml"
)

// File and directory path strings.
var (
	HomeGrabarrDir string
	LogFilePath    string
	ConfigFilePath string
)

// InitProgFilesDirs initializes necessary program directories and filepaths.
func InitProgFilesDirs() error {
	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		return errors.New("failed to get home directory")
	}

	// Home grabarr dir ~/.grabarr
	HomeGrabarrDir = filepath.Join(userHomeDir, gDir)
	if _, err := os.Stat(HomeGrabarrDir); os.IsNotExist(err) {
		if err := os.MkdirAll(HomeGrabarrDir, consts.PermsProgDir); err != nil {
			return fmt.Errorf("failed to make directories: %w", err)
		}
	}

	LogFilePath = filepath.Join(HomeGrabarrDir, logFile)
	ConfigFilePath = filepath.Join(HomeGrabarrDir, configFile)
	return nil
}
