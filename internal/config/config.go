package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	GatewayAddr string

	StockfishPath      string
	EnginePoolCapacity int
	EngineThreads      int
	EngineHashMB       int
	MoveOverheadMillis int

	DefaultSkillLevel int
	DefaultMinThinkMS int

	SessionIdleTTLMS int

	PresetOverrideDir string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		GatewayAddr:        ":8080",
		EnginePoolCapacity: 4,
		EngineThreads:      1,
		EngineHashMB:       16,
		MoveOverheadMillis: 30,
		DefaultSkillLevel:  20,
		DefaultMinThinkMS:  100,
		SessionIdleTTLMS:   1800000,
	}

	if v := strings.TrimSpace(os.Getenv("GATEWAY_ADDR")); v != "" {
		cfg.GatewayAddr = v
	}

	cfg.StockfishPath = strings.TrimSpace(os.Getenv("STOCKFISH_PATH"))

	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_CAPACITY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnginePoolCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_THREADS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineThreads = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_HASH_MB")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EngineHashMB = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MOVE_OVERHEAD_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MoveOverheadMillis = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("DEFAULT_SKILL_LEVEL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 20 {
			cfg.DefaultSkillLevel = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_MIN_THINK_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.DefaultMinThinkMS = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("SESSION_IDLE_TTL_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.SessionIdleTTLMS = n
		}
	}

	cfg.PresetOverrideDir = strings.TrimSpace(os.Getenv("PRESET_OVERRIDE_DIR"))

	if cfg.StockfishPath == "" {
		return nil, errors.New("STOCKFISH_PATH is required")
	}

	return cfg, nil
}
