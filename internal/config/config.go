package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/meteorsfall/voxelcraft/internal/logging"
	"github.com/meteorsfall/voxelcraft/internal/storage"
)

// Config корневая структура конфигурации приложения.
type Config struct {
	World   WorldConfig   `yaml:"world"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type WorldConfig struct {
	SavePath          string `yaml:"save_path"`
	Seed              int64  `yaml:"seed"`
	SpawnRadiusChunks int    `yaml:"spawn_radius_chunks"`
	BlockCatalog      string `yaml:"block_catalog"`
}

// Backend-ы хранилища сохранений
const (
	BackendZip    = "zip"
	BackendBadger = "badger"
)

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Compression string `yaml:"compression"`
	BadgerPath  string `yaml:"badger_path"`
}

type ServerConfig struct {
	HTTPPort int `yaml:"http_port"`
	// Пределы запросов, выполняемых под блокировкой мира
	MaxRaycastDistance float64 `yaml:"max_raycast_distance"`
	MaxCollideExtent   float64 `yaml:"max_collide_extent"`
}

type LogConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	// Уровни отдельных компонентов: world, storage, terrain, http
	Components map[string]string `yaml:"components"`
}

// Default возвращает рабочую конфигурацию без файла
func Default() *Config {
	return &Config{
		World: WorldConfig{
			SavePath:          "data/world.zip",
			Seed:              12345,
			SpawnRadiusChunks: 2,
		},
		Storage: StorageConfig{
			Backend:     BackendZip,
			Compression: storage.CompressionZstd,
			BadgerPath:  "data/badger",
		},
		Server: ServerConfig{
			MaxRaycastDistance: 256,
			MaxCollideExtent:   64,
		},
		Log: LogConfig{
			ConsoleLevel: "INFO",
			FileLevel:    "DEBUG",
		},
	}
}

// GetHTTPPort возвращает порт HTTP API с поддержкой fallback значений
func (s *ServerConfig) GetHTTPPort() int {
	return getPortWithEnvFallback(s.HTTPPort, "VOXEL_HTTP_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Validate проверяет значения, которые нельзя исправить молча
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendZip:
		if c.World.SavePath == "" {
			return fmt.Errorf("world.save_path is required for the zip backend")
		}
	case BackendBadger:
		if c.Storage.BadgerPath == "" {
			return fmt.Errorf("storage.badger_path is required for the badger backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if !storage.ValidCompression(c.Storage.Compression) {
		return fmt.Errorf("unknown storage compression %q", c.Storage.Compression)
	}
	if c.World.SpawnRadiusChunks < 0 {
		return fmt.Errorf("world.spawn_radius_chunks must not be negative")
	}
	if c.Server.MaxRaycastDistance <= 0 {
		return fmt.Errorf("server.max_raycast_distance must be positive")
	}
	if c.Server.MaxCollideExtent <= 0 {
		return fmt.Errorf("server.max_collide_extent must be positive")
	}
	if _, err := logging.ParseLevel(c.Log.ConsoleLevel); err != nil {
		return fmt.Errorf("log.console_level: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.FileLevel); err != nil {
		return fmt.Errorf("log.file_level: %w", err)
	}
	if err := logging.CheckLevels(c.Log.Components); err != nil {
		return fmt.Errorf("log.components: %w", err)
	}
	return nil
}

// Load читает YAML файл конфигурации поверх Default.
// Если path == "", пытается прочитать из ENV VOXEL_CONFIG или возвращает Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("VOXEL_CONFIG")
		if path == "" {
			return cfg, nil // конфиг не задан, используем дефолты
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
