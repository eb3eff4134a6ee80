// Package tools implements the built-in adapters registered with the session
// host: transcript preprocessing, summarization, risk detection, Jira issue
// creation, calendar access, and notification fan-out. Adapters resolve their
// external credentials at execute time, environment first and credentials
// store second, so secrets set while the server runs are picked up without a
// restart. A tool that is missing its backend reports a skipped result
// instead of erroring.
package tools

import (
	"context"
	"fmt"
	"os"
)

// SecretSource supplies named secrets, usually the credentials store.
type SecretSource interface {
	Get(ctx context.Context, name string) (string, error)
}

// resolveSecret returns the first non-empty value among the explicit
// configuration value, the named environment variable, and the secret source.
func resolveSecret(ctx context.Context, secrets SecretSource, explicit, envName, secretName string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv(envName); v != "" {
		return v
	}
	if secrets != nil {
		if v, err := secrets.Get(ctx, secretName); err == nil && v != "" {
			return v
		}
	}
	return ""
}

// summaryText accepts a summary parameter as either the structured summary
// object or a bare string. Structured objects carry the text under
// summary_text (the notification payload shape) or summary (the
// summarization tool's own output).
func summaryText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case map[string]any:
		if text, ok := s["summary_text"].(string); ok {
			return text
		}
		text, _ := s["summary"].(string)
		return text
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// listLen reports the length of a list-shaped parameter regardless of how
// the caller's decoder typed it.
func listLen(v any) int {
	switch items := v.(type) {
	case []any:
		return len(items)
	case []string:
		return len(items)
	case []map[string]any:
		return len(items)
	}
	return 0
}
