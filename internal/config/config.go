package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，api.host 对应 RESTO_API_HOST
const EnvPrefix = "RESTO"

// Config 全局配置
type Config struct {
	DB     DBConfig     `mapstructure:"db"`
	API    APIConfig    `mapstructure:"api"`
	Sync   SyncConfig   `mapstructure:"sync"`
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
}

// DBConfig 数据库配置
type DBConfig struct {
	Host         string `mapstructure:"host" validate:"required"`
	Port         int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name" validate:"required"`
	SSLMode      string `mapstructure:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	TimeZone     string `mapstructure:"timezone"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	LogLevel     string `mapstructure:"log_level" validate:"oneof=silent error warn info"`
}

// DSN postgres 连接串
func (c DBConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	if c.TimeZone != "" {
		dsn += " TimeZone=" + c.TimeZone
	}
	return dsn
}

// APIConfig 开放平台配置
type APIConfig struct {
	Scheme          string        `mapstructure:"scheme" validate:"oneof=http https"`
	Host            string        `mapstructure:"host" validate:"required"`
	Path            string        `mapstructure:"path" validate:"required,startswith=/"`
	AppKey          string        `mapstructure:"app_key" validate:"required"`
	SecretKey       string        `mapstructure:"secret_key" validate:"required"`
	CorporationID   int64         `mapstructure:"corporation_id" validate:"gt=0"`
	OrgCode         string        `mapstructure:"org_code" validate:"required_if=OrgCodeRequired true"`
	OrgCodeRequired bool          `mapstructure:"org_code_required"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`
	QPS             float64       `mapstructure:"qps" validate:"gte=0"`
	ProxyURL        string        `mapstructure:"proxy_url" validate:"omitempty,url"`
}

// SyncConfig 同步配置
type SyncConfig struct {
	PageDelay       time.Duration `mapstructure:"page_delay" validate:"gte=0"`
	MaxPages        int           `mapstructure:"max_pages" validate:"gte=0"`
	MaxDuration     time.Duration `mapstructure:"max_duration" validate:"gte=0"`
	OnFetchError    string        `mapstructure:"on_fetch_error" validate:"oneof=stop retry"`
	FetchRetries    int           `mapstructure:"fetch_retries" validate:"gte=0"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff" validate:"gte=0"`
	WriteMode       string        `mapstructure:"write_mode" validate:"oneof=legacy atomic"`
	Cron            string        `mapstructure:"cron" validate:"required"`
	TriggerCooldown time.Duration `mapstructure:"trigger_cooldown" validate:"gte=0"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
	Mode string `mapstructure:"mode" validate:"oneof=debug release test"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// CronParser 带秒字段的 cron 表达式解析器，调度器与校验共用
var CronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ==================== 加载 ====================

// setDefaults 所有键都要有默认值，环境变量才能参与 Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "resto")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Shanghai")
	v.SetDefault("db.max_open_conns", 1)
	v.SetDefault("db.max_idle_conns", 1)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("api.scheme", "https")
	v.SetDefault("api.host", "")
	v.SetDefault("api.path", "")
	v.SetDefault("api.app_key", "")
	v.SetDefault("api.secret_key", "")
	v.SetDefault("api.corporation_id", 0)
	v.SetDefault("api.org_code", "")
	v.SetDefault("api.org_code_required", false)
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.qps", 0)
	v.SetDefault("api.proxy_url", "")

	v.SetDefault("sync.page_delay", 500*time.Millisecond)
	v.SetDefault("sync.max_pages", 10000)
	v.SetDefault("sync.max_duration", 0)
	v.SetDefault("sync.on_fetch_error", "stop")
	v.SetDefault("sync.fetch_retries", 3)
	v.SetDefault("sync.retry_backoff", 2*time.Second)
	v.SetDefault("sync.write_mode", "legacy")
	v.SetDefault("sync.cron", "0 0 */6 * * *")
	v.SetDefault("sync.trigger_cooldown", 5*time.Minute)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load 默认值 -> 配置文件(可选) -> 环境变量，最后校验
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ==================== 校验 ====================

var validate = validator.New()

// Validate 结构校验 + cron 表达式校验
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s 校验失败(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("配置校验失败: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("配置校验失败: %w", err)
	}

	if _, err := CronParser.Parse(c.Sync.Cron); err != nil {
		return fmt.Errorf("配置校验失败: sync.cron 无效: %w", err)
	}
	return nil
}
