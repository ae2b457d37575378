package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// iniSource reads keys from the default section of an INI file.
type iniSource struct {
	section *ini.Section
}

func openINI(path string) (Source, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: loading %s: %w", path, err)
	}
	return &iniSource{section: file.Section("")}, nil
}

func (s *iniSource) GetString(key, def string) string {
	if !s.section.HasKey(key) {
		return def
	}
	return s.section.Key(key).String()
}

func (s *iniSource) GetInt(key string, def int) int {
	if !s.section.HasKey(key) {
		return def
	}
	return s.section.Key(key).MustInt(def)
}

func (s *iniSource) GetBool(key string, def bool) bool {
	if !s.section.HasKey(key) {
		return def
	}
	return s.section.Key(key).MustBool(def)
}

func (s *iniSource) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(s.section.Keys()))
	for _, key := range s.section.Keys() {
		values[key.Name()] = key.String()
	}
	return values
}
