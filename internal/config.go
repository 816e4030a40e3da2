package loadsetup

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/fuzun45/FBCM-LoadSetup-Software/internal/util"
)

// LoadConfig() will load a YAML config file at the specified path. There are
// some general considerations about how this is done with spf13/viper:
//
// 1. There are intentionally no search paths set, so the config path has to
// be set explicitly
// 2. No data will be written to the config file from the tool
// 3. Parameters passed as CLI flags and environment variables always have
// precedence over values set in the config.
func LoadConfig(path string) error {
	dir, filename, ext := util.SplitPathForViper(path)
	viper.AddConfigPath(dir)
	viper.SetConfigName(filename)
	viper.SetConfigType(ext)
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return fmt.Errorf("config file not found: %w", err)
		} else {
			return fmt.Errorf("failed to load config file: %w", err)
		}
	}
	return nil
}
