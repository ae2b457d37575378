// Package config loads pool configuration from INI, YAML or HCL files.
// The parser is selected by file extension; an extension without a
// registered backend is a construction error, never a silent fallback.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultPath is used when the caller does not name a config file.
const DefaultPath = "db_config.ini"

// Source is a typed key/value view over a loaded config file.
// Missing keys and values that cannot be coerced return the supplied
// default; they are not errors.
type Source interface {
	GetString(key, def string) string
	GetInt(key string, def int) int
	GetBool(key string, def bool) bool

	// Values returns the raw top-level key set for struct decoding
	Values() map[string]interface{}
}

// Open loads the file at path with the backend matching its extension.
func Open(path string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ini":
		return openINI(path)
	case ".yaml", ".yml":
		return openYAML(path)
	case ".hcl":
		return openHCL(path)
	default:
		return nil, fmt.Errorf("config: unsupported extension %q in %s", ext, path)
	}
}
