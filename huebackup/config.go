package huebackup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"github.com/aldld/huebackup/mirror"
)

const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"

	sqliteFile = "huebackup.db"
)

type Config struct {
	Logger    LoggerConfig    `toml:"logger"`
	Bridge    BridgeConfig    `toml:"bridge"`
	Cache     CacheConfig     `toml:"cache"`
	Snapshots SnapshotsConfig `toml:"snapshots"`
}

type LoggerConfig struct {
	Level string `toml:"level"`
}

func (c LoggerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type BridgeConfig struct {
	Addr   string `toml:"addr"`
	AppKey string `toml:"app_key"`
}

type CacheConfig struct {
	Dir     string   `toml:"dir"`
	Backend string   `toml:"backend"`
	MaxAge  Duration `toml:"max_age"`
}

type SnapshotsConfig struct {
	// Dir keeps snapshots apart from the cache. Empty means the cache
	// backend holds them too.
	Dir string `toml:"dir"`
}

// Duration reads Go duration strings such as "24h" from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultConfig is used for every setting the file and environment leave
// unset.
func DefaultConfig() Config {
	dir := "huebackup-cache"
	if cache, err := os.UserCacheDir(); err == nil {
		dir = filepath.Join(cache, "huebackup")
	}
	return Config{
		Logger: LoggerConfig{Level: "info"},
		Cache: CacheConfig{
			Dir:     dir,
			Backend: BackendDir,
			MaxAge:  Duration{mirror.DefaultMaxAge},
		},
	}
}

// LoadConfig reads the TOML file at path on top of the defaults, then
// applies HUE_BRIDGE_ADDR, HUE_APP_KEY and HUEBACKUP_CACHE_DIR from the
// environment or a .env file. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, &config); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	config.applyEnv(os.Getenv)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("HUE_BRIDGE_ADDR"); v != "" {
		c.Bridge.Addr = v
	}
	if v := getenv("HUE_APP_KEY"); v != "" {
		c.Bridge.AppKey = v
	}
	if v := getenv("HUEBACKUP_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
}

func (c Config) Validate() error {
	switch c.Cache.Backend {
	case BackendDir, BackendSQLite:
	default:
		return fmt.Errorf("cache backend must be %q or %q, got %q", BackendDir, BackendSQLite, c.Cache.Backend)
	}
	if c.Cache.Dir == "" {
		return errors.New("cache dir is empty")
	}
	if c.Cache.MaxAge.Duration <= 0 {
		return fmt.Errorf("cache max_age must be positive, got %s", c.Cache.MaxAge)
	}
	return nil
}

// RequireBridge reports a missing bridge address or application key.
func (c Config) RequireBridge() error {
	var missing []string
	if c.Bridge.Addr == "" {
		missing = append(missing, "bridge.addr (HUE_BRIDGE_ADDR)")
	}
	if c.Bridge.AppKey == "" {
		missing = append(missing, "bridge.app_key (HUE_APP_KEY)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing bridge settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
