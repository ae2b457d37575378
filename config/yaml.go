package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-yaml"
)

// yamlSource reads top-level scalar keys from a YAML document.
type yamlSource struct {
	values map[string]interface{}
}

func openYAML(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	values := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &yamlSource{values: values}, nil
}

func (s *yamlSource) GetString(key, def string) string {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case string:
		return t
	case int, int64, uint64, float64, bool:
		return fmt.Sprintf("%v", t)
	default:
		return def
	}
}

func (s *yamlSource) GetInt(key string, def int) int {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
		return def
	default:
		return def
	}
}

func (s *yamlSource) GetBool(key string, def bool) bool {
	v, ok := s.values[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		if b, err := strconv.ParseBool(t); err == nil {
			return b
		}
		return def
	default:
		return def
	}
}

func (s *yamlSource) Values() map[string]interface{} {
	return s.values
}
