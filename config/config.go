package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata" // 容器镜像可能没有系统时区数据

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Email        EmailConfig        `mapstructure:"email"`
	Queue        QueueConfig        `mapstructure:"queue"`
	CORS         CORSConfig         `mapstructure:"cors"`
	Log          LogConfig          `mapstructure:"log"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
	Paywall      PaywallConfig      `mapstructure:"paywall"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	SiteName string `mapstructure:"site_name"`
}

type QueueConfig struct {
	NotificationQueue string `mapstructure:"notification_queue"`
	MaxWorkers        int    `mapstructure:"max_workers"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
}

// PaymentConfig 支付网关（Razorpay）配置
type PaymentConfig struct {
	KeyID          string        `mapstructure:"key_id"`
	KeySecret      string        `mapstructure:"key_secret"`
	Currency       string        `mapstructure:"currency"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// lockMargin 用户锁在网关超时之外预留的时间，覆盖加锁区间内的数据库读写
const lockMargin = 5 * time.Second

type SubscriptionConfig struct {
	MaxActive       int           `mapstructure:"max_active"`        // 同时生效的订阅上限
	PendingOrderTTL time.Duration `mapstructure:"pending_order_ttl"` // 待支付订单占用名额的时长
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	LockWait        time.Duration `mapstructure:"lock_wait"` // 获取用户锁的最长等待时间
}

// MinLockTTL 用户锁要覆盖一次完整的网关下单请求
func MinLockTTL(requestTimeout time.Duration) time.Duration {
	return requestTimeout + lockMargin
}

type PaywallConfig struct {
	DefaultPreviewWords int `mapstructure:"default_preview_words"`
}

type SchedulerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Spec         string        `mapstructure:"spec"`     // cron 表达式，默认每天 12:15
	Timezone     string        `mapstructure:"timezone"` // 例如 Asia/Kolkata
	ReminderDays int           `mapstructure:"reminder_days"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// Location 返回调度使用的时区，未配置或无法解析时使用本地时区
func (c SchedulerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("queue.notification_queue", "notification_queue")
	v.SetDefault("queue.max_workers", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("payment.currency", "INR")
	v.SetDefault("payment.request_timeout", 10*time.Second)
	v.SetDefault("subscription.max_active", 2)
	v.SetDefault("subscription.pending_order_ttl", 30*time.Minute)
	v.SetDefault("subscription.lock_ttl", 30*time.Second)
	v.SetDefault("subscription.lock_wait", 2*time.Second)
	v.SetDefault("paywall.default_preview_words", 150)
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.spec", "15 12 * * *")
	v.SetDefault("scheduler.reminder_days", 3)
	v.SetDefault("scheduler.lock_ttl", 10*time.Minute)
}

func Load(configPath string) (*Config, error) {
	// 优先尝试读取 config.local.yaml（包含真实密钥，不提交到git）
	dir := filepath.Dir(configPath)
	localConfigPath := filepath.Join(dir, "config.local.yaml")

	if _, err := os.Stat(localConfigPath); err == nil {
		configPath = localConfigPath
	}

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	// 环境变量覆盖
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 锁在网关请求返回前过期会让同一用户的第二次下单进入临界区
	if floor := MinLockTTL(cfg.Payment.RequestTimeout); cfg.Subscription.LockTTL < floor {
		cfg.Subscription.LockTTL = floor
	}

	return &cfg, nil
}
