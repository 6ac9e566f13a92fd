package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. STREAMFI_CONTRACT_APP_ID.
const EnvPrefix = "STREAMFI"

// AppConfig is the full process configuration.
type AppConfig struct {
	App         ServiceConfig     `mapstructure:"app"`
	API         APIConfig         `mapstructure:"api"`
	Algod       AlgodConfig       `mapstructure:"algod"`
	Chain       ChainConfig       `mapstructure:"chain"`
	Contract    ContractConfig    `mapstructure:"contract"`
	Wallet      WalletConfig      `mapstructure:"wallet"`
	Store       StoreConfig       `mapstructure:"store"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
}

type ServiceConfig struct {
	Env             string        `mapstructure:"env" validate:"oneof=development production test"`
	LogLevel        string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	HTTPPort        int           `mapstructure:"http_port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// APIConfig guards the mutating JSON endpoints. An empty HMACSecret leaves
// them open.
type APIConfig struct {
	HMACSecret string        `mapstructure:"hmac_secret"`
	MaxSkew    time.Duration `mapstructure:"max_skew" validate:"gte=0"`
}

type AlgodConfig struct {
	Address string `mapstructure:"address" validate:"omitempty,url"`
	Token   string `mapstructure:"token"`
}

// ChainConfig selects the node implementation. Fake runs against an
// in-process node that accepts every well-formed transaction.
type ChainConfig struct {
	Fake bool `mapstructure:"fake"`
}

type ContractConfig struct {
	AppID         uint64 `mapstructure:"app_id" validate:"gt=0"`
	Network       string `mapstructure:"network" validate:"required"`
	ExplorerTxURL string `mapstructure:"explorer_tx_url" validate:"omitempty,url"`
	ConfirmRounds uint64 `mapstructure:"confirm_rounds" validate:"max=1000"`
}

type WalletConfig struct {
	Mnemonic   string        `mapstructure:"mnemonic"`
	Approval   string        `mapstructure:"approval" validate:"oneof=auto prompt"`
	SessionKey string        `mapstructure:"session_key" validate:"required"`
	SessionTTL time.Duration `mapstructure:"session_ttl" validate:"gte=0"`
}

type StoreConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=memory file postgres redis"`
	FilePath      string `mapstructure:"file_path" validate:"required_if=Backend file"`
	PostgresDSN   string `mapstructure:"postgres_dsn" validate:"required_if=Backend postgres"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
}

type IdempotencyConfig struct {
	Window time.Duration `mapstructure:"window" validate:"gte=0"`
}

var (
	validate = validator.New()

	// ErrNodeRequired is returned when neither an algod address nor the fake
	// node is configured.
	ErrNodeRequired = errors.New("algod.address is required unless chain.fake is set")
)

// Load reads configuration from file (optional) and the environment. When
// configFile is empty, streamfi.yaml is looked up in . and ./config.
func Load(configFile string) (*AppConfig, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("streamfi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the cross-section rules.
func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !c.Chain.Fake && c.Algod.Address == "" {
		return ErrNodeRequired
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.http_port", 3000)
	v.SetDefault("app.shutdown_timeout", "10s")

	v.SetDefault("api.hmac_secret", "")
	v.SetDefault("api.max_skew", "5m")

	v.SetDefault("algod.address", "https://testnet-api.algonode.cloud")
	v.SetDefault("algod.token", "")

	v.SetDefault("chain.fake", false)

	v.SetDefault("contract.app_id", 749515555)
	v.SetDefault("contract.network", "testnet")
	v.SetDefault("contract.explorer_tx_url", "https://testnet.algoexplorer.io/tx/")
	v.SetDefault("contract.confirm_rounds", 0)

	v.SetDefault("wallet.mnemonic", "")
	v.SetDefault("wallet.approval", "prompt")
	v.SetDefault("wallet.session_key", "wallet:session")
	v.SetDefault("wallet.session_ttl", "24h")

	v.SetDefault("store.backend", "file")
	v.SetDefault("store.file_path", ".streamfi/state.json")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_password", "")
	v.SetDefault("store.redis_db", 0)

	v.SetDefault("idempotency.window", "10m")
}
