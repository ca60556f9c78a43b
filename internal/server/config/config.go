// Package config handles configuration for the server:
// defaults, optional JSON file overlay and environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Address         string   `json:"address"`          // адрес прослушивания, например ":8080"
	ShutdownTimeout Duration `json:"shutdown_timeout"` // таймаут graceful shutdown
}

// StorageConfig пути к файлам хранилищ
type StorageConfig struct {
	SQLitePath string `json:"sqlite_path"` // файл SQLite (":memory:" для тестов)
	BoltPath   string `json:"bolt_path"`   // файл BoltDB с сессиями
}

// AuthConfig настройки аутентификации и сессий
type AuthConfig struct {
	SessionTTL      Duration `json:"session_ttl"`      // срок жизни сессии
	CleanupInterval Duration `json:"cleanup_interval"` // период фоновой очистки сессий
	BcryptCost      int      `json:"bcrypt_cost"`      // стоимость bcrypt
	// LegacyOpenRoutes воспроизводит историческое поведение: поиск и
	// операции редактирования/удаления доступны без аутентификации и
	// без проверки владельца записи
	LegacyOpenRoutes bool `json:"legacy_open_routes"`
}

// InventoryConfig настройки инвентаря
type InventoryConfig struct {
	MaxPerOwner int `json:"max_per_owner"` // лимит записей на владельца
	PageSize    int `json:"page_size"`     // размер страницы списка
}

// RateLimitConfig настройки ограничения частоты запросов
type RateLimitConfig struct {
	Window Duration `json:"window"` // временное окно
	Rate   int      `json:"rate"`   // запросов на окно с одного IP
}

// Config holds runtime settings for the medkeep server
type Config struct {
	Server    ServerConfig    `json:"server"`
	Storage   StorageConfig   `json:"storage"`
	Auth      AuthConfig      `json:"auth"`
	Inventory InventoryConfig `json:"inventory"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	LogLevel  string          `json:"log_level"`
}

// LoadDefaults populates Config with sensible development defaults
func (c *Config) LoadDefaults() {
	c.Server.Address = ":8080"
	c.Server.ShutdownTimeout = Duration(10 * time.Second)
	c.Storage.SQLitePath = "medkeep.db"
	c.Storage.BoltPath = "sessions.db"
	c.Auth.SessionTTL = Duration(24 * time.Hour)
	c.Auth.CleanupInterval = Duration(time.Hour)
	c.Auth.BcryptCost = 10
	c.Auth.LegacyOpenRoutes = false
	c.Inventory.MaxPerOwner = 5
	c.Inventory.PageSize = 3
	c.RateLimit.Rate = 100
	c.RateLimit.Window = Duration(time.Minute)
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from environment variables
func LoadConfig(jsonPath string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := cfg.loadFromFile(jsonPath); err != nil {
		return nil, err
	}
	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile накладывает значения из JSON файла.
// Пустой путь означает "файла нет", это не ошибка
func (c *Config) loadFromFile(path string) error {
	if path == "" {
		path = os.Getenv("MEDKEEP_CONFIG")
	}
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv накладывает значения из переменных окружения
func (c *Config) loadFromEnv() {
	if v := os.Getenv("MEDKEEP_ADDR"); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv("MEDKEEP_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("MEDKEEP_BOLT_PATH"); v != "" {
		c.Storage.BoltPath = v
	}
	if v := os.Getenv("MEDKEEP_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Auth.SessionTTL = Duration(d)
		}
	}
	if v := os.Getenv("MEDKEEP_BCRYPT_COST"); v != "" {
		if cost, err := strconv.Atoi(v); err == nil {
			c.Auth.BcryptCost = cost
		}
	}
	if v := os.Getenv("MEDKEEP_LEGACY_OPEN_ROUTES"); v != "" {
		c.Auth.LegacyOpenRoutes = parseBool(v)
	}
	if v := os.Getenv("MEDKEEP_RATE_LIMIT"); v != "" {
		if rate, err := strconv.Atoi(v); err == nil {
			c.RateLimit.Rate = rate
		}
	}
	if v := os.Getenv("MEDKEEP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// parseBool трактует "true", "1" и "yes" как истину
func parseBool(value string) bool {
	switch value {
	case "true", "1", "yes", "TRUE", "Yes", "True":
		return true
	}
	return false
}
