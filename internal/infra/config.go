package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config — корневая структура конфигурации монитора.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Fleet    FleetConfig    `mapstructure:"fleet"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера консоли.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig описывает подключение к PostgreSQL.
// Пустой URL — легальный режим: монитор работает memory-only.
type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig описывает подключение к Redis (широковещание дельт).
// Пустой Addr отключает broadcast.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FleetConfig — доступ к внешнему API управления флотом.
type FleetConfig struct {
	BaseURL  string   `mapstructure:"base_url"`
	APIToken string   `mapstructure:"api_token"` // Обязателен; без него цикл фейлится целиком
	GroupIDs []string `mapstructure:"group_ids"` // Какие проекты/группы опрашиваем
}

// MonitorConfig содержит настройки цикла опроса и защитных механизмов.
type MonitorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`

	// Circuit Breaker над внешним API
	CBFailureThreshold uint32        `mapstructure:"cb_failure_threshold"`
	CBResetTimeout     time.Duration `mapstructure:"cb_reset_timeout"`

	// Лимиты хранения истории в памяти
	SampleHistoryLimit  int `mapstructure:"sample_history_limit"`
	ProbeHistoryLimit   int `mapstructure:"probe_history_limit"`
	AnomalyHistoryLimit int `mapstructure:"anomaly_history_limit"`
	ErrorLogLimit       int `mapstructure:"error_log_limit"`

	// Аудит
	AuditBufferSize    int           `mapstructure:"audit_buffer_size"`
	AuditFlushInterval time.Duration `mapstructure:"audit_flush_interval"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// MemoryOnly сообщает, работаем ли без долговременного хранилища
func (c *Config) MemoryOnly() bool {
	return c.Database.URL == ""
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// 2. ENV перекрывает файл: FLEET_API_TOKEN=... перекроет fleet.api_token
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Дефолты
	setDefaults(v)

	// 4. Чтение файла. Если файла нет — работаем на ENV и дефолтах
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("database.max_conns", 15)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("monitor.poll_interval", 5*time.Minute)
	v.SetDefault("monitor.probe_timeout", 8*time.Second)
	v.SetDefault("monitor.cb_failure_threshold", 25)
	v.SetDefault("monitor.cb_reset_timeout", 60*time.Second)
	v.SetDefault("monitor.sample_history_limit", 5000)
	v.SetDefault("monitor.probe_history_limit", 10000)
	v.SetDefault("monitor.anomaly_history_limit", 1000)
	v.SetDefault("monitor.error_log_limit", 200)
	v.SetDefault("monitor.audit_buffer_size", 1000)
	v.SetDefault("monitor.audit_flush_interval", 500*time.Millisecond)
}
