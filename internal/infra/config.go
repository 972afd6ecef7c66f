package infra

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ngotrantronghieu/Gesture-Flow/internal/action"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/audit"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/engine"
	"github.com/ngotrantronghieu/Gesture-Flow/internal/safety"
)

// Config — корневая структура конфигурации всего сервиса.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  engine.Config `mapstructure:"engine"`
	Policy  action.Policy `mapstructure:"policy"`
	Backend BackendConfig `mapstructure:"backend"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Safety  safety.Config `mapstructure:"safety"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// ServerConfig описывает настройки HTTP-сервера управления.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// BackendConfig — выбор драйвера ввода.
type BackendConfig struct {
	Preferred string `mapstructure:"preferred"` // "robotgo" или "cmdtool"
}

// AuditConfig — журнал аудита: хранилище и параметры батчинга.
type AuditConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Storage     string `mapstructure:"storage"` // "file" или "postgres"
	Path        string `mapstructure:"path"`    // для file
	DatabaseURL string `mapstructure:"database_url"`

	audit.Config `mapstructure:",squash"`
}

// RedisConfig — межпроцессная синхронизация аварийного стопа (опционально).
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig — защита управляющего API. Пустой секрет выключает
// проверку токенов (локальный однопользовательский режим).
type AuthConfig struct {
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// LoggerConfig настраивает поведение zap логгера.
type LoggerConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// LoadConfig инициализирует конфигурацию, объединяя значения из файла и ENV.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. Настройка поиска файла
	v.SetConfigName("config")    // имя файла без расширения
	v.SetConfigType("yaml")      // формат
	v.AddConfigPath(".")         // ищем в корне
	v.AddConfigPath("./configs") // и в папке с конфигами

	// 2. Настройка переменных окружения (ENV)
	// Позволяет перекрывать конфиг: SERVER_PORT=9000 перекроет server.port
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 3. Установка дефолтных значений
	setDefaults(v)

	// 4. Чтение файла
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Если файла нет — работаем на ENV и дефолтах
	}

	// 5. Маппинг в структуру
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	// 6. Политика: незаданные секции добираются из консервативных
	// дефолтов (System выключен, известные опасные сочетания запрещены)
	cfg.Policy = mergePolicyDefaults(cfg.Policy)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8750)
	v.SetDefault("server.read_timeout", 5*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("engine.workers", 2)
	v.SetDefault("engine.queue_size", 100)
	v.SetDefault("engine.history_limit", 1000)
	v.SetDefault("engine.async", true)
	v.SetDefault("engine.grace_delay", 100*time.Millisecond)

	v.SetDefault("backend.preferred", "robotgo")

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.storage", "file")
	v.SetDefault("audit.path", "data/logs/action_audit.jsonl")
	v.SetDefault("audit.buffer_size", 10000)
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.flush_interval", 500*time.Millisecond)

	v.SetDefault("redis.addr", "localhost:6379")

	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("safety.enabled", true)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
}

// mergePolicyDefaults дополняет политику из конфига дефолтами,
// не затирая явно заданные секции.
func mergePolicyDefaults(p action.Policy) action.Policy {
	def := action.DefaultPolicy()

	if len(p.Types) == 0 {
		p.Types = def.Types
	}
	if p.DangerousKeys == nil {
		p.DangerousKeys = def.DangerousKeys
	}
	if p.MaxCoordinate <= 0 {
		p.MaxCoordinate = def.MaxCoordinate
	}
	if p.MaxTextLength <= 0 {
		p.MaxTextLength = def.MaxTextLength
	}
	if p.MaxSequenceLength <= 0 {
		p.MaxSequenceLength = def.MaxSequenceLength
	}
	if p.MaxLoopIterations <= 0 {
		p.MaxLoopIterations = def.MaxLoopIterations
	}
	if p.MaxMacroDepth <= 0 {
		p.MaxMacroDepth = def.MaxMacroDepth
	}
	return p
}
