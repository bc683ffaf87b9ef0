package dsl

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
)

// RenderFile reads a YAML template file and expands environment references.
func RenderFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Render(path, raw)
}

// Render expands {{ env "X" }} and {{ envOr "X" "default" }} in raw.
// A reference to an unset variable through env is an error.
func Render(name string, raw []byte) ([]byte, error) {
	if strings.TrimSpace(name) == "" {
		name = "config"
	}
	missing := map[string]struct{}{}
	funcs := template.FuncMap{
		"env": func(key string) string {
			value, ok := os.LookupEnv(key)
			if !ok {
				missing[key] = struct{}{}
			}
			return value
		},
		"envOr": func(key, def string) string {
			if value, ok := os.LookupEnv(key); ok {
				return value
			}
			return def
		},
	}

	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]any{}); err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}
	if len(missing) > 0 {
		keys := make([]string, 0, len(missing))
		for key := range missing {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("missing env vars: %s", strings.Join(keys, ", "))
	}
	return buf.Bytes(), nil
}
