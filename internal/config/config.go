// Package config loads the daemon-level TOML configuration. Settings
// that users mutate at runtime (ffmpeg path, save root, poll interval)
// live in the store instead; the TOML values only seed the store on
// first run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/livecap/livecap/internal/logger"
	"github.com/livecap/livecap/internal/model"
)

const (
	DefaultListen = "127.0.0.1:9080"
	dbFileName    = "livecap.db"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Listen   string   `toml:"listen" mapstructure:"listen"`
	DataDir  string   `toml:"data_dir" mapstructure:"data_dir"`
	Env      []string `toml:"env" mapstructure:"env"`
	EnvFiles []string `toml:"env_files" mapstructure:"env_files"`
	UseOSEnv bool     `toml:"use_os_env" mapstructure:"use_os_env"`

	Log        LogConfig    `toml:"log" mapstructure:"log"`
	CaptureLog LogConfig    `toml:"capture_log" mapstructure:"capture_log"`
	Record     RecordConfig `toml:"record" mapstructure:"record"`
	Sinks      []SinkConfig `toml:"sinks" mapstructure:"sinks"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Color      bool   `toml:"color" mapstructure:"color"`
	Dir        string `toml:"dir" mapstructure:"dir"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

// RecordConfig seeds the stored AppConfig on first run.
type RecordConfig struct {
	FFmpegPath        string `toml:"ffmpeg_path" mapstructure:"ffmpeg_path"`
	SavePath          string `toml:"save_path" mapstructure:"save_path"`
	LiveCheckInterval uint64 `toml:"live_check_interval" mapstructure:"live_check_interval"`
}

// SinkConfig is one history sink destination.
type SinkConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Load parses path and fills in defaults. A missing file is an error;
// an empty path returns pure defaults.
func Load(path string) (*FileConfig, error) {
	fc := &FileConfig{}
	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(fc); err != nil {
			return nil, err
		}
	}
	fc.applyDefaults()
	return fc, nil
}

func (fc *FileConfig) applyDefaults() {
	if fc.Listen == "" {
		fc.Listen = DefaultListen
	}
	if fc.DataDir == "" {
		fc.DataDir = "./data"
	}
	if fc.Log.Level == "" {
		fc.Log.Level = "info"
	}
	def := model.DefaultAppConfig()
	if fc.Record.FFmpegPath == "" {
		fc.Record.FFmpegPath = def.FFmpegPath
	}
	if fc.Record.SavePath == "" {
		fc.Record.SavePath = def.SavePath
	}
	if fc.Record.LiveCheckInterval == 0 {
		fc.Record.LiveCheckInterval = def.LiveCheckInterval
	}
}

// StorePath is the SQLite file inside the data dir.
func (fc *FileConfig) StorePath() string {
	return filepath.Join(fc.DataDir, dbFileName)
}

// AppConfig builds the stored config seed from the record section.
func (fc *FileConfig) AppConfig() model.AppConfig {
	return model.AppConfig{
		FFmpegPath:        fc.Record.FFmpegPath,
		SavePath:          fc.Record.SavePath,
		LiveCheckInterval: fc.Record.LiveCheckInterval,
	}
}

// CaptureLogConfig maps the capture_log section onto the rotating
// writer config used for ffmpeg stderr.
func (fc *FileConfig) CaptureLogConfig() logger.Config {
	return logger.Config{
		Dir:        fc.CaptureLog.Dir,
		MaxSizeMB:  fc.CaptureLog.MaxSizeMB,
		MaxBackups: fc.CaptureLog.MaxBackups,
		MaxAgeDays: fc.CaptureLog.MaxAgeDays,
		Compress:   fc.CaptureLog.Compress,
	}
}

// SinkDSNs returns the non-empty sink destinations in file order.
func (fc *FileConfig) SinkDSNs() []string {
	out := make([]string, 0, len(fc.Sinks))
	for _, s := range fc.Sinks {
		if s.DSN != "" {
			out = append(out, s.DSN)
		}
	}
	return out
}

// GlobalEnv merges the configured environment for the daemon and its
// ffmpeg children. Precedence: OS env (when enabled) is the base, env
// files apply next, the inline env list overrides last.
func (fc *FileConfig) GlobalEnv() ([]string, error) {
	m := make(map[string]string)
	if fc.UseOSEnv {
		for _, kv := range os.Environ() {
			if i := strings.IndexByte(kv, '='); i >= 0 {
				m[kv[:i]] = kv[i+1:]
			}
		}
	}
	for _, p := range fc.EnvFiles {
		pairs, err := loadEnvFile(p)
		if err != nil {
			return nil, err
		}
		for k, v := range pairs {
			m[k] = v
		}
	}
	for _, kv := range fc.Env {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	out := make([]string, 0, len(m))
	for k, v := range m {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// loadEnvFile parses KEY=VALUE lines. Lines starting with # are ignored.
func loadEnvFile(path string) (map[string]string, error) {
	clean := filepath.Clean(path)
	b, err := os.ReadFile(clean)
	if err != nil {
		return nil, fmt.Errorf("env file %s: %w", clean, err)
	}
	m := make(map[string]string)
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if i := strings.IndexByte(line, '='); i >= 0 {
			m[strings.TrimSpace(line[:i])] = strings.TrimSpace(line[i+1:])
		}
	}
	return m, nil
}
