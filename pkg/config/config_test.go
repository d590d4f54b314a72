package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "config.json")
	assert.NoError(t, os.WriteFile(file, []byte(contents), 0644))
	return file
}

func TestLoadDecodesMixedJSONValuesAsStrings(t *testing.T) {
	file := writeConfig(t, `{
		"Termination.MaxIters": 1000,
		"Termination.StopWhenComplete": true,
		"General.Seed": "42",
		"Parallel.NrSolvers": 4
	}`)

	cfg, err := Load(file)
	assert.NoError(t, err)
	assert.Equal(t, 1000, cfg.IntValue("Termination.MaxIters", 0))
	assert.True(t, cfg.BoolValue("Termination.StopWhenComplete", false))
	assert.Equal(t, 42, cfg.IntValue("General.Seed", 0))
	assert.Equal(t, 4, cfg.IntValue("Parallel.NrSolvers", 1))
}

func TestIntValueReturnsDefaultWhenKeyAbsent(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, 7, cfg.IntValue("missing", 7))
}

func TestIntValuePanicsOnMalformedValue(t *testing.T) {
	cfg := Config{"bad": "not-a-number"}
	assert.Panics(t, func() { cfg.IntValue("bad", 0) })
}

func TestDurationValueParsesGoDurationStrings(t *testing.T) {
	cfg := Config{"Termination.TimeOut": "30s"}
	assert.Equal(t, 30*time.Second, cfg.DurationValue("Termination.TimeOut", 0))
}

func TestStringValueReturnsDefaultWhenAbsent(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, "default", cfg.StringValue("missing", "default"))
}
