package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const defaultConnectorTable = "connector_events"

// Connector locates the Supabase table a usage connector writes snapshots to.
type Connector struct {
	URL         string
	AnonKey     string
	Table       string
	ConnectorID string
}

// ErrConnectorIncomplete is returned when no layer supplies a required field.
var ErrConnectorIncomplete = errors.New("connector config incomplete")

// ConnectorOptions name the layers ResolveConnector reads. Empty fields use
// the standard locations.
type ConnectorOptions struct {
	ExplicitPath string   // QUOTABAR_CONNECTOR_CONFIG
	LocalPath    string   // <config dir>/connector.json
	EnvFiles     []string // .env files, read without touching the process env
	ExamplePath  string   // connector.example.json
	Getenv       func(string) string
}

type connectorFile struct {
	SupabaseURL     string `json:"supabase_url"`
	URL             string `json:"url"`
	SupabaseAnonKey string `json:"supabase_anon_key"`
	AnonKey         string `json:"anon_key"`
	Table           string `json:"table"`
	ConnectorID     string `json:"connector_id"`
}

func (f connectorFile) connector() Connector {
	return Connector{
		URL:         firstNonEmpty(f.SupabaseURL, f.URL),
		AnonKey:     firstNonEmpty(f.SupabaseAnonKey, f.AnonKey),
		Table:       f.Table,
		ConnectorID: f.ConnectorID,
	}
}

// ResolveConnector merges the layers field by field: explicit file, local
// file, environment, example template. Placeholder values never win.
func ResolveConnector(opts ConnectorOptions) (Connector, error) {
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	if opts.ExplicitPath == "" {
		opts.ExplicitPath = strings.TrimSpace(getenv("QUOTABAR_CONNECTOR_CONFIG"))
	}
	if opts.LocalPath == "" {
		opts.LocalPath = filepath.Join(ConfigDir(), "connector.json")
	}
	if opts.EnvFiles == nil {
		opts.EnvFiles = []string{".env", filepath.Join(ConfigDir(), ".env")}
	}
	if opts.ExamplePath == "" {
		opts.ExamplePath = "connector.example.json"
	}

	layers := []Connector{
		readConnectorFile(opts.ExplicitPath),
		readConnectorFile(opts.LocalPath),
		envConnector(getenv, opts.EnvFiles),
		readConnectorFile(opts.ExamplePath),
	}

	var out Connector
	for _, layer := range layers {
		if out.URL == "" && !isPlaceholderURL(layer.URL) {
			out.URL = strings.TrimRight(strings.TrimSpace(layer.URL), "/")
		}
		if out.AnonKey == "" && !isPlaceholderKey(layer.AnonKey) {
			out.AnonKey = strings.TrimSpace(layer.AnonKey)
		}
		if out.Table == "" && !isPlaceholderKey(layer.Table) {
			out.Table = strings.TrimSpace(layer.Table)
		}
		if out.ConnectorID == "" && !isPlaceholderKey(layer.ConnectorID) {
			out.ConnectorID = strings.TrimSpace(layer.ConnectorID)
		}
	}
	if out.Table == "" {
		out.Table = defaultConnectorTable
	}

	var missing []string
	if out.URL == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if out.AnonKey == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if out.ConnectorID == "" {
		missing = append(missing, "QUOTABAR_CONNECTOR_ID")
	}
	if len(missing) > 0 {
		return out, fmt.Errorf("%w: missing %s", ErrConnectorIncomplete, strings.Join(missing, ", "))
	}
	return out, nil
}

func readConnectorFile(path string) Connector {
	if strings.TrimSpace(path) == "" {
		return Connector{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Connector{}
	}
	var f connectorFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Connector{}
	}
	return f.connector()
}

// envConnector prefers the process environment and falls back to .env
// files in order.
func envConnector(getenv func(string) string, files []string) Connector {
	dotenv := map[string]string{}
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			continue
		}
		for k, v := range values {
			if _, seen := dotenv[k]; !seen {
				dotenv[k] = v
			}
		}
	}
	lookup := func(key string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return strings.TrimSpace(dotenv[key])
	}
	return Connector{
		URL:         lookup("SUPABASE_URL"),
		AnonKey:     lookup("SUPABASE_ANON_KEY"),
		Table:       lookup("SUPABASE_TABLE"),
		ConnectorID: lookup("QUOTABAR_CONNECTOR_ID"),
	}
}

func isPlaceholderURL(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.Contains(strings.ToLower(v), "your-project-ref")
}

func isPlaceholderKey(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "" || strings.Contains(v, "replace_me") || strings.Contains(v, "replace-me")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
