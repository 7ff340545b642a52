package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engryamato/hvaccore/internal/entity"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.History.MaxSize)
	assert.Equal(t, []entity.EquipmentType{"diffuser", "hood", "damper"}, cfg.Flow.SourceEquipmentTypes)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Database.Path)
}

func TestParse_EmptyGivesDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_OverlaysDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
history:
  max_size: 25
flow:
  source_equipment_types: [fan]
database:
  path: /tmp/hvac.db
`))
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.History.MaxSize)
	assert.Equal(t, []entity.EquipmentType{entity.EquipmentFan}, cfg.Flow.SourceEquipmentTypes)
	assert.Equal(t, "/tmp/hvac.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep defaults")
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("history:\n  maxsize: 5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxsize")
}

func TestParse_ValidationError(t *testing.T) {
	_, err := Parse(strings.NewReader(`
history:
  max_size: 0
flow:
  source_equipment_types: [blower]
log:
  level: loud
  format: xml
`))
	require.Error(t, err)
	require.True(t, IsValidationError(err))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Problems, 4)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hvaccore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n  format: json\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EmptyPathAndMissingFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("warn", "json", &buf)

	assert.False(t, l.Enabled(context.Background(), slog.LevelInfo))
	l.Warn("hello", "k", 1)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}

func TestConfig_Logger_VerboseForcesDebug(t *testing.T) {
	var buf bytes.Buffer
	l := Default().Logger(&buf, true)
	assert.True(t, l.Enabled(context.Background(), slog.LevelDebug))

	l = NewLogger("bogus", "text", &buf)
	assert.True(t, l.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
}
