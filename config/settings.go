package config

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Settings is the typed pool configuration decoded from a Source.
type Settings struct {
	IP       string
	Port     int
	Username string
	Password string
	DBName   string

	// InitSize sessions are opened eagerly at startup; the pool grows
	// on demand up to MaxSize and trims back toward InitSize.
	InitSize int
	MaxSize  int

	// MaxIdleTime is both the idle trim threshold and the scavenger period.
	MaxIdleTime time.Duration

	// ConnectionTimeout bounds how long an acquire waits for a free session.
	ConnectionTimeout time.Duration
}

// rawSettings mirrors the on-disk key names and units.
type rawSettings struct {
	IP                string `mapstructure:"ip"`
	Port              int    `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	Password          string `mapstructure:"password"`
	DBName            string `mapstructure:"dbname"`
	InitSize          int    `mapstructure:"initSize"`
	MaxSize           int    `mapstructure:"maxSize"`
	MaxIdleTime       int    `mapstructure:"maxIdleTime"`       // seconds
	ConnectionTimeOut int    `mapstructure:"connectionTimeOut"` // milliseconds
}

// DefaultSettings returns the settings used when keys are absent.
func DefaultSettings() *Settings {
	return &Settings{
		IP:                "localhost",
		Port:              3306,
		Username:          "root",
		Password:          "",
		DBName:            "test",
		InitSize:          5,
		MaxSize:           10,
		MaxIdleTime:       60 * time.Second,
		ConnectionTimeout: 100 * time.Millisecond,
	}
}

// LoadSettings opens the file at path and decodes it into Settings.
func LoadSettings(path string) (*Settings, error) {
	src, err := Open(path)
	if err != nil {
		return nil, err
	}
	return DecodeSettings(src)
}

// DecodeSettings decodes a Source into validated Settings. Keys absent
// from the source keep their defaults.
func DecodeSettings(src Source) (*Settings, error) {
	raw := rawSettings{
		IP:                "localhost",
		Port:              3306,
		Username:          "root",
		DBName:            "test",
		InitSize:          5,
		MaxSize:           10,
		MaxIdleTime:       60,
		ConnectionTimeOut: 100,
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("config: building decoder: %w", err)
	}
	if err := decoder.Decode(src.Values()); err != nil {
		return nil, fmt.Errorf("config: decoding settings: %w", err)
	}

	settings := &Settings{
		IP:                raw.IP,
		Port:              raw.Port,
		Username:          raw.Username,
		Password:          raw.Password,
		DBName:            raw.DBName,
		InitSize:          raw.InitSize,
		MaxSize:           raw.MaxSize,
		MaxIdleTime:       time.Duration(raw.MaxIdleTime) * time.Second,
		ConnectionTimeout: time.Duration(raw.ConnectionTimeOut) * time.Millisecond,
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// Validate reports the first structurally invalid field.
func (s *Settings) Validate() error {
	if s.InitSize < 1 {
		return fmt.Errorf("config: initSize must be at least 1, got %d", s.InitSize)
	}
	if s.MaxSize < s.InitSize {
		return fmt.Errorf("config: maxSize %d is below initSize %d", s.MaxSize, s.InitSize)
	}
	if s.MaxIdleTime <= 0 {
		return fmt.Errorf("config: maxIdleTime must be positive, got %s", s.MaxIdleTime)
	}
	if s.ConnectionTimeout <= 0 {
		return fmt.Errorf("config: connectionTimeOut must be positive, got %s", s.ConnectionTimeout)
	}
	return nil
}
