package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func noEnv(string) string { return "" }

func TestResolveConnector_LayerOrder(t *testing.T) {
	dir := t.TempDir()
	explicit := writeJSON(t, filepath.Join(dir, "explicit.json"), `{"connector_id":"explicit-id"}`)
	local := writeJSON(t, filepath.Join(dir, "local.json"), `{"supabase_url":"https://local.supabase.co/","connector_id":"local-id"}`)
	example := writeJSON(t, filepath.Join(dir, "example.json"), `{"supabase_url":"https://your-project-ref.supabase.co","supabase_anon_key":"example-key","table":"example_events"}`)

	env := map[string]string{"SUPABASE_ANON_KEY": "env-key", "SUPABASE_URL": "https://env.supabase.co"}
	c, err := ResolveConnector(ConnectorOptions{
		ExplicitPath: explicit,
		LocalPath:    local,
		EnvFiles:     []string{},
		ExamplePath:  example,
		Getenv:       func(k string) string { return env[k] },
	})
	require.NoError(t, err)

	assert.Equal(t, "explicit-id", c.ConnectorID)
	assert.Equal(t, "https://local.supabase.co", c.URL)
	assert.Equal(t, "env-key", c.AnonKey)
	assert.Equal(t, "example_events", c.Table)
}

func TestResolveConnector_PlaceholdersNeverWin(t *testing.T) {
	dir := t.TempDir()
	local := writeJSON(t, filepath.Join(dir, "local.json"), `{
		"supabase_url":"https://YOUR-PROJECT-REF.supabase.co",
		"supabase_anon_key":"replace_me",
		"connector_id":"Replace-Me-Connector"
	}`)

	_, err := ResolveConnector(ConnectorOptions{
		LocalPath:    local,
		ExplicitPath: filepath.Join(dir, "missing.json"),
		EnvFiles:     []string{},
		ExamplePath:  filepath.Join(dir, "missing-example.json"),
		Getenv:       noEnv,
	})
	require.ErrorIs(t, err, ErrConnectorIncomplete)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
	assert.Contains(t, err.Error(), "SUPABASE_ANON_KEY")
	assert.Contains(t, err.Error(), "QUOTABAR_CONNECTOR_ID")
}

func TestResolveConnector_DotEnvWithoutMutatingEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SUPABASE_URL=https://dotenv.supabase.co\nSUPABASE_ANON_KEY=dotenv-key\nQUOTABAR_CONNECTOR_ID=laptop\n"), 0o600))
	t.Setenv("SUPABASE_URL", "")

	c, err := ResolveConnector(ConnectorOptions{
		ExplicitPath: filepath.Join(dir, "none.json"),
		LocalPath:    filepath.Join(dir, "none.json"),
		EnvFiles:     []string{filepath.Join(dir, "missing.env"), envFile},
		ExamplePath:  filepath.Join(dir, "none.json"),
	})
	require.NoError(t, err)

	assert.Equal(t, "https://dotenv.supabase.co", c.URL)
	assert.Equal(t, "laptop", c.ConnectorID)
	assert.Equal(t, "connector_events", c.Table)
	assert.Empty(t, os.Getenv("SUPABASE_URL"), ".env values must not leak into the process env")
}
