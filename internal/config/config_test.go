package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes YAML to a temp config file and returns its path.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad_NoConfigFile(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "missing.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, "nord", cfg.Theme)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Notifications)
	assert.Equal(t, 8.0, cfg.Workweek.HoursPerDay)
	assert.Len(t, cfg.Workweek.Days, 5)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "skein.db"), cfg.DBPath)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dataDir := t.TempDir()
	path := writeConfig(t, `
theme: gruvbox
notifications: false
log_level: debug
workweek:
  hours_per_day: 6
  days: [monday, wednesday, friday]
`)

	cfg, err := Load(path, dataDir)
	require.NoError(t, err)

	assert.Equal(t, "gruvbox", cfg.Theme)
	assert.False(t, cfg.Notifications)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 6.0, cfg.Workweek.HoursPerDay)
	assert.Equal(t, []string{"monday", "wednesday", "friday"}, cfg.Workweek.Days)
	// db_path not set in the file, so the default still anchors to dataDir.
	assert.Equal(t, filepath.Join(dataDir, "skein.db"), cfg.DBPath)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "theme: gruvbox\n")

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gruvbox", cfg.Theme)
	assert.True(t, cfg.Notifications, "absent key keeps the default")
	assert.Equal(t, 8.0, cfg.Workweek.HoursPerDay)
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "theme: [unclosed\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestLoad_UnknownTheme(t *testing.T) {
	path := writeConfig(t, "theme: solarized\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown theme "solarized"`)
}

func TestLoad_UnknownLogLevel(t *testing.T) {
	path := writeConfig(t, "log_level: loud\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log level "loud"`)
}

func TestLoad_HoursOutOfRange(t *testing.T) {
	path := writeConfig(t, "workweek:\n  hours_per_day: 25\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hours_per_day")
}

func TestLoad_ReportsEveryBadWeekday(t *testing.T) {
	path := writeConfig(t, "workweek:\n  days: [monday, wendsday, fryday]\n")

	_, err := Load(path, t.TempDir())
	require.Error(t, err)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Len(t, fieldErrs, 2)
	assert.Equal(t, "workweek.days[1]", fieldErrs[0].Field)
	assert.Equal(t, "workweek.days[2]", fieldErrs[1].Field)
}

func TestSchedule_Conversion(t *testing.T) {
	w := WorkweekConfig{HoursPerDay: 10, Days: []string{"Mon", "saturday"}}

	ww, err := w.Schedule()
	require.NoError(t, err)

	assert.Equal(t, 10.0, ww.HoursPerDay)
	assert.True(t, ww.Days[time.Monday])
	assert.True(t, ww.Days[time.Saturday])
	assert.False(t, ww.Days[time.Sunday])
}

func TestValidateDeep_LogFileDirMissing(t *testing.T) {
	dataDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.DataDir = dataDir
	cfg.applyDefaults()
	cfg.LogFile = filepath.Join(dataDir, "nope", "skein.log")

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "log_file", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "does not exist")
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	tmp := t.TempDir()
	file := filepath.Join(tmp, "notadir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	cfg := DefaultConfig()
	cfg.DataDir = file
	cfg.applyDefaults()

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "data_dir", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "is not a directory")
}

func TestValidateDeep_ConfigPathIsDirectory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.applyDefaults()

	err := cfg.ValidateDeep(cfg.DataDir)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.Equal(t, "config_file", fieldErrs[0].Field)
	assert.Contains(t, fieldErrs[0].Err.Error(), "is a directory")
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Contains(t, path, filepath.Join(".config", "skein", "config.yaml"))
}
