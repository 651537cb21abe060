package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/yourusername/lernbank-api/internal/service/templatebank"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bank     BankConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`
}

// BankConfig содержит настройки движка банка шаблонов.
// Нулевые значения заменяются умолчаниями движка при сборке.
type BankConfig struct {
	SimilarityThreshold     float64 `mapstructure:"similarity_threshold"`
	DuplicateCooldownMin    int     `mapstructure:"duplicate_cooldown_min"`
	CandidatePoolCap        int     `mapstructure:"candidate_pool_cap"`
	TargetPerCombination    int     `mapstructure:"target_per_combination"`
	MinPlaysForArchive      int     `mapstructure:"min_plays_for_archive"`
	ArchiveQualityBelow     float64 `mapstructure:"archive_quality_below"`
	ArchiveCorrectRateBelow float64 `mapstructure:"archive_correct_rate_below"`
	InitialQuality          float64 `mapstructure:"initial_quality"`

	// Domains: пространство доменов учебного плана с минимальными классами.
	// Пустой список = пространство по умолчанию.
	Domains []templatebank.DomainSpec `mapstructure:"domains"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// EngineConfig собирает конфигурацию движка: заданные значения поверх умолчаний
func (b *BankConfig) EngineConfig() *templatebank.Config {
	cfg := templatebank.DefaultConfig()
	if b.SimilarityThreshold > 0 {
		cfg.SimilarityThreshold = b.SimilarityThreshold
	}
	if b.DuplicateCooldownMin > 0 {
		cfg.DuplicateCooldown = time.Duration(b.DuplicateCooldownMin) * time.Minute
	}
	if b.CandidatePoolCap > 0 {
		cfg.CandidatePoolCap = b.CandidatePoolCap
	}
	if b.TargetPerCombination > 0 {
		cfg.TargetPerCombination = b.TargetPerCombination
	}
	if b.MinPlaysForArchive > 0 {
		cfg.MinPlaysForArchive = b.MinPlaysForArchive
	}
	if b.ArchiveQualityBelow > 0 {
		cfg.ArchiveQualityBelow = b.ArchiveQualityBelow
	}
	if b.ArchiveCorrectRateBelow > 0 {
		cfg.ArchiveCorrectRateBelow = b.ArchiveCorrectRateBelow
	}
	if b.InitialQuality > 0 {
		cfg.InitialQuality = b.InitialQuality
	}
	return cfg
}

// TaxonomySpace собирает пространство таксономии с учётом заданных доменов
func (b *BankConfig) TaxonomySpace() templatebank.TaxonomySpace {
	space := templatebank.DefaultTaxonomySpace()
	if len(b.Domains) > 0 {
		space.Domains = b.Domains
	}
	return space
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции Bank
	vip.BindEnv("bank.similarity_threshold", "BANK_SIMILARITY_THRESHOLD")
	vip.BindEnv("bank.duplicate_cooldown_min", "BANK_DUPLICATE_COOLDOWN_MIN")
	vip.BindEnv("bank.candidate_pool_cap", "BANK_CANDIDATE_POOL_CAP")
	vip.BindEnv("bank.target_per_combination", "BANK_TARGET_PER_COMBINATION")
	vip.BindEnv("bank.min_plays_for_archive", "BANK_MIN_PLAYS_FOR_ARCHIVE")
	vip.BindEnv("bank.initial_quality", "BANK_INITIAL_QUALITY")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")

	// 2. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 3. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 4. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 5. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database User: %s", cfg.Database.User)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Database SSLMode: %s", cfg.Database.SSLMode)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Bank Domains: %d", len(cfg.Bank.Domains))
		log.Printf("-----------------------------------------")
	}

	// 6. Проверка обязательных параметров
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	ginMode := vip.GetString("GIN_MODE")
	if ginMode != "debug" {
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
		}
		isRedisConfigured := len(cfg.Redis.Addrs) > 0 || cfg.Redis.Addr != ""
		if isRedisConfigured && cfg.Redis.Password == "" {
			log.Println("Warning: Redis is configured but REDIS_PASSWORD is not set in a non-debug environment.")
		}
	}

	return &cfg, nil
}
