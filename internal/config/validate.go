package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hay-kot/criterio"
	"github.com/rs/zerolog"
)

// ValidateDeep performs comprehensive validation including file
// accessibility. The configPath argument specifies the config file location
// to validate (empty string skips the config file check). This calls
// Validate() first for structural checks, then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("log_file", c.LogFile, logFileWritable),
	)
}

// validateDays reports every invalid day name instead of stopping at the
// first, so a hand-edited config gets one complete error.
func (c *Config) validateDays() error {
	var errs criterio.FieldErrorsBuilder

	for i, name := range c.Workweek.Days {
		if _, err := parseWeekday(name); err != nil {
			errs = errs.Append(fmt.Sprintf("workweek.days[%d]", i), err)
		}
	}

	return errs.ToError()
}

func (c *Config) validateFileAccess(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // missing config file is fine, defaults apply
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}

	return nil
}

// isDirectoryOrNotExist passes for directories and for paths that do not
// exist yet; the data dir is created on first use.
func isDirectoryOrNotExist(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// logFileWritable checks that the log file's directory exists. The file
// itself is created on first write.
func logFileWritable(path string) error {
	if path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Errorf("directory %s does not exist", dir)
	}
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	return nil
}

func validLogLevel(level string) error {
	if _, err := zerolog.ParseLevel(level); err != nil {
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}
