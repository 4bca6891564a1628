package detect

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

// detectCodex reports the Codex CLI binary, its auth.json (with the account
// email from the id_token when present) and OPENAI_API_KEY.
func detectCodex(opts Options) []Finding {
	var out []Finding

	if bin, err := opts.LookPath("codex"); err == nil && bin != "" {
		out = append(out, Finding{ProviderID: "codex", Source: "binary", Detail: bin})
	}

	if dir := codexHome(opts); dir != "" {
		authFile := filepath.Join(dir, "auth.json")
		if fileExists(authFile) {
			detail := authFile
			if email := codexEmail(authFile); email != "" {
				detail = email
			}
			debugf("codex auth found at %s", authFile)
			out = append(out, Finding{ProviderID: "codex", Source: "file", Detail: detail})
		}
	}

	if strings.TrimSpace(opts.Getenv("OPENAI_API_KEY")) != "" {
		out = append(out, Finding{ProviderID: "codex", Source: "env", Detail: "OPENAI_API_KEY"})
	}
	return out
}

// codexEmail reads the email claim from auth.json's id_token. The JWT
// signature is not verified.
func codexEmail(authFile string) string {
	data, err := os.ReadFile(authFile)
	if err != nil || !gjson.ValidBytes(data) {
		return ""
	}
	token := gjson.GetBytes(data, "tokens.id_token").String()
	parts := strings.SplitN(token, ".", 3)
	if len(parts) < 2 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	return gjson.GetBytes(payload, "email").String()
}
