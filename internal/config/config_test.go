package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datagruntio/cleanroom/internal/config"
)

const validYAML = `
buckets:
  inbox: gs://inbox
  staging: gs://staging
  archive: gs://archive
event_bus_topic: projects/p/topics/t
lakehouse:
  project_id: my-project
  connection_handle: my-connection
  iceberg_base_path: gs://lakehouse/iceberg
working_directory: /tmp/work
log_level: info
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, validYAML)
	cfg, err := config.Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "gs://inbox", cfg.Buckets.Inbox)
	assert.Equal(t, "my-project", cfg.Lakehouse.ProjectID)
	// output_directory defaults to working_directory when unset.
	assert.Equal(t, cfg.WorkingDirectory, cfg.OutputDirectory)
}

func TestLoadMissingRequiredFieldFailsStartup(t *testing.T) {
	path := writeConfig(t, `
buckets:
  inbox: gs://inbox
  staging: gs://staging
  archive: gs://archive
event_bus_topic: projects/p/topics/t
lakehouse:
  project_id: my-project
  connection_handle: my-connection
  iceberg_base_path: gs://lakehouse/iceberg
`)
	_, err := config.Load(path, "")
	assert.ErrorContains(t, err, "working_directory")
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
}

func TestEnvOverrideTakesPrecedence(t *testing.T) {
	path := writeConfig(t, validYAML)
	t.Setenv("DATAGRUNT_INBOX_BUCKET", "gs://overridden-inbox")

	cfg, err := config.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "gs://overridden-inbox", cfg.Buckets.Inbox)
}

func TestValidateRequiresEventBusTopic(t *testing.T) {
	cfg := config.Config{
		Buckets:          config.Buckets{Inbox: "i", Staging: "s", Archive: "a"},
		Lakehouse:        config.Lakehouse{ProjectID: "p", ConnectionHandle: "c", IcebergBasePath: "b"},
		WorkingDirectory: "/tmp",
	}
	assert.ErrorContains(t, cfg.Validate(), "event_bus_topic")
}
