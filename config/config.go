package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del watcher de free collateral.
type Config struct {
	Network  NetworkConfig  `yaml:"network"`
	Notional NotionalConfig `yaml:"notional"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	NATS     NATSConfig     `yaml:"nats"`
	DryRun   DryRunConfig   `yaml:"dry_run"`
	Log      LogConfig      `yaml:"log"`
}

// NetworkConfig describe la red EVM: RPC para bloques y el feed de precio ETH/USD.
type NetworkConfig struct {
	Name               string `yaml:"name"`    // mainnet | arbitrum ...
	RPCURL             string `yaml:"rpc_url"` // ETH_RPC_URL lo sobreescribe
	PriceFeed          string `yaml:"price_feed"`
	MaxPriceAgeSeconds int    `yaml:"max_price_age_seconds"` // 0 = sin control de frescura
}

// NotionalConfig controla la lectura del riesgo de la cuenta.
type NotionalConfig struct {
	APIBase     string `yaml:"api_base"`
	MaxAttempts int    `yaml:"max_attempts"` // reintentos del fetch completo; 1 = sin reintento
	RetryWaitMS int    `yaml:"retry_wait_ms"`
	FixturePath string `yaml:"fixture_path"` // usado en dry-run en lugar de la API
}

// WatcherConfig controla el host.
type WatcherConfig struct {
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	CooldownBlocks      uint64 `yaml:"cooldown_blocks"`
	PruneCron           string `yaml:"prune_cron"`
	RetentionDays       int    `yaml:"retention_days"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// TelegramConfig habilita el canal telegram si Token no está vacío.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

// NATSConfig habilita el canal nats si URL no está vacía.
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DryRunConfig: precio fijo para no depender del feed on-chain.
type DryRunConfig struct {
	ETHPriceUSD float64 `yaml:"eth_price_usd"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// PollInterval devuelve el intervalo de sondeo de bloques.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watcher.PollIntervalSeconds) * time.Second
}

// MaxPriceAge devuelve la antigüedad máxima aceptada del precio (0 = sin límite).
func (c *Config) MaxPriceAge() time.Duration {
	return time.Duration(c.Network.MaxPriceAgeSeconds) * time.Second
}

// RetryWait devuelve la espera base entre reintentos del fetch.
func (c *Config) RetryWait() time.Duration {
	return time.Duration(c.Notional.RetryWaitMS) * time.Millisecond
}

// Retention devuelve la antigüedad máxima del log de notificaciones.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Watcher.RetentionDays) * 24 * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ETH_RPC_URL"); v != "" {
		cfg.Network.RPCURL = v
	}
	if v := os.Getenv("NOTIONAL_API_BASE"); v != "" {
		cfg.Notional.APIBase = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.Token = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Network.Name == "" {
		cfg.Network.Name = "mainnet"
	}
	if cfg.Network.PriceFeed == "" {
		// Chainlink ETH/USD en mainnet
		cfg.Network.PriceFeed = "0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419"
	}
	if cfg.Notional.MaxAttempts <= 0 {
		cfg.Notional.MaxAttempts = 1
	}
	if cfg.Notional.RetryWaitMS <= 0 {
		cfg.Notional.RetryWaitMS = 500
	}
	if cfg.Watcher.PollIntervalSeconds <= 0 {
		cfg.Watcher.PollIntervalSeconds = 12
	}
	if cfg.Watcher.PruneCron == "" {
		cfg.Watcher.PruneCron = "@daily"
	}
	if cfg.Watcher.RetentionDays <= 0 {
		cfg.Watcher.RetentionDays = 30
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "freecollateral.db"
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "freecollateral.notifications"
	}
	if cfg.DryRun.ETHPriceUSD <= 0 {
		cfg.DryRun.ETHPriceUSD = 2000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
