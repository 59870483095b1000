package config

import (
	"os"
	"sync"
	"time"
)

// Config holds runtime knobs read from the environment. Persisted host
// settings (mode, binaries, extensions) live in the global TOML store; env
// values here win for the lifetime of the process.
type Config struct {
	LogLevel      string
	DataDir       string
	LocalHost     string
	LocalPort     int
	AttachTimeout time.Duration
	PollInterval  time.Duration
	APIKey        string
	AppName       string
}

var (
	cacheTTL   = 10 * time.Second
	nowFunc    = time.Now
	cacheMu    sync.RWMutex
	cachedCfg  Config
	cachedAt   time.Time
	cacheValid bool
)

func LoadConfig() Config {
	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = nowFunc()
	cacheValid = true
	cacheMu.Unlock()
	return cfg
}

func GetConfig() *Config {
	now := nowFunc()
	cacheMu.RLock()
	valid := cacheValid && now.Sub(cachedAt) < cacheTTL
	if valid {
		out := cachedCfg
		cacheMu.RUnlock()
		return &out
	}
	cacheMu.RUnlock()

	cfg := loadFromEnv()
	cacheMu.Lock()
	cachedCfg = cfg
	cachedAt = now
	cacheValid = true
	cacheMu.Unlock()

	out := cfg
	return &out
}

func loadFromEnv() Config {
	level := os.Getenv("NVIMBRIDGE_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	dataDir := os.Getenv("NVIMBRIDGE_DATA_DIR")

	localHost := os.Getenv("NVIMBRIDGE_LOCAL_HOST")
	if localHost == "" {
		localHost = "127.0.0.1"
	}
	localPort := 4781
	if p := os.Getenv("NVIMBRIDGE_LOCAL_PORT"); p != "" {
		if n := atoiOrDefault(p, 4781); n > 0 {
			localPort = n
		}
	}

	attachTimeout := 5 * time.Second
	if ms := atoiOrDefault(os.Getenv("NVIMBRIDGE_ATTACH_TIMEOUT_MS"), 0); ms > 0 {
		attachTimeout = time.Duration(ms) * time.Millisecond
	}
	pollInterval := 200 * time.Millisecond
	if ms := atoiOrDefault(os.Getenv("NVIMBRIDGE_POLL_INTERVAL_MS"), 0); ms > 0 {
		pollInterval = time.Duration(ms) * time.Millisecond
	}

	return Config{
		LogLevel:      level,
		DataDir:       dataDir,
		LocalHost:     localHost,
		LocalPort:     localPort,
		AttachTimeout: attachTimeout,
		PollInterval:  pollInterval,
		APIKey:        os.Getenv("NVIMBRIDGE_API_KEY"),
		AppName:       os.Getenv("NVIMBRIDGE_APP_NAME"),
	}
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
