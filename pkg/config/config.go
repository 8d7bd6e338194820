package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Admin        AdminConfig
	Plans        PlansConfig
	Referral     ReferralConfig
	Broadcast    BroadcastConfig
	Telegram     TelegramConfig
	Provision    ProvisionConfig
	RateLimit    RateLimitConfig
	YooMoney     YooMoneyConfig
	Qiwi         QiwiConfig
	Cryptomus    CryptomusConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"TUNNELPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"TUNNELPAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"TUNNELPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TUNNELPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"TUNNELPAY_DB_DSN"`
	Driver string `envconfig:"TUNNELPAY_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"TUNNELPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TUNNELPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TUNNELPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TUNNELPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"TUNNELPAY_REDIS_URL" required:"true"`
	Password     string        `envconfig:"TUNNELPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"TUNNELPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TUNNELPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TUNNELPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TUNNELPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TUNNELPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TUNNELPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"TUNNELPAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"TUNNELPAY_AUTO_MIGRATE" default:"false"`
}

// AdminConfig guards the administrative surface (broadcasts, stats, payouts).
type AdminConfig struct {
	APIToken string `envconfig:"TUNNELPAY_ADMIN_API_TOKEN" required:"true"`
}

// PlansConfig carries plan prices in whole rubles; the catalog converts
// them to kopecks.
type PlansConfig struct {
	OneMonthPrice    int64 `envconfig:"TUNNELPAY_PLAN_1_MONTH_PRICE" default:"299"`
	ThreeMonthPrice  int64 `envconfig:"TUNNELPAY_PLAN_3_MONTH_PRICE" default:"799"`
	SixMonthPrice    int64 `envconfig:"TUNNELPAY_PLAN_6_MONTH_PRICE" default:"1499"`
	TwelveMonthPrice int64 `envconfig:"TUNNELPAY_PLAN_12_MONTH_PRICE" default:"2699"`
}

type ReferralConfig struct {
	BonusPercent     int64 `envconfig:"TUNNELPAY_REFERRAL_BONUS_PERCENT" default:"10"`
	MinPayoutKopecks int64 `envconfig:"TUNNELPAY_REFERRAL_MIN_PAYOUT_KOPECKS" default:"10000"`
}

type BroadcastConfig struct {
	PacingDelay      time.Duration `envconfig:"TUNNELPAY_BROADCAST_PACING_DELAY" default:"100ms"`
	ProgressInterval int           `envconfig:"TUNNELPAY_BROADCAST_PROGRESS_INTERVAL" default:"50"`
}

type TelegramConfig struct {
	BotToken    string        `envconfig:"TUNNELPAY_TELEGRAM_BOT_TOKEN" required:"true"`
	SendTimeout time.Duration `envconfig:"TUNNELPAY_TELEGRAM_SEND_TIMEOUT" default:"10s"`
}

// ProvisionConfig points at the VPN credential issuer.
type ProvisionConfig struct {
	BaseURL   string   `envconfig:"TUNNELPAY_PROVISION_URL" required:"true"`
	APIKey    string   `envconfig:"TUNNELPAY_PROVISION_API_KEY" required:"true"`
	Locations []string `envconfig:"TUNNELPAY_SERVER_LOCATIONS" default:"Netherlands,Germany,France,United States,Japan,Singapore"`
}

// RateLimitConfig throttles the payment verification endpoint per client.
type RateLimitConfig struct {
	VerifyWindow time.Duration `envconfig:"TUNNELPAY_VERIFY_RATE_WINDOW" default:"1m"`
	VerifyLimit  int64         `envconfig:"TUNNELPAY_VERIFY_RATE_LIMIT" default:"10"`
}

type YooMoneyConfig struct {
	Token   string `envconfig:"TUNNELPAY_YOOMONEY_TOKEN"`
	BaseURL string `envconfig:"TUNNELPAY_YOOMONEY_BASE_URL" default:"https://yoomoney.ru/api"`
}

type QiwiConfig struct {
	Token   string `envconfig:"TUNNELPAY_QIWI_TOKEN"`
	BaseURL string `envconfig:"TUNNELPAY_QIWI_BASE_URL" default:"https://api.qiwi.com"`
}

type CryptomusConfig struct {
	APIKey      string `envconfig:"TUNNELPAY_CRYPTOMUS_API_KEY"`
	MerchantID  string `envconfig:"TUNNELPAY_CRYPTOMUS_MERCHANT_ID"`
	BaseURL     string `envconfig:"TUNNELPAY_CRYPTOMUS_BASE_URL" default:"https://api.cryptomus.com/v1"`
	CallbackURL string `envconfig:"TUNNELPAY_CRYPTOMUS_CALLBACK_URL"`
	ReturnURL   string `envconfig:"TUNNELPAY_CRYPTOMUS_RETURN_URL"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TUNNELPAY_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"TUNNELPAY_CRON_LOCK_TTL" default:"4m"`
}
