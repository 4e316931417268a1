package config

import (
	"log"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var Cfg Config

type Config struct {
	// 服务配置
	ServerPort  string `env:"SERVER_PORT" envDefault:"8888"`
	ServerHost  string `env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // development, staging, production
	ServiceName string `env:"SERVICE_NAME" envDefault:"solguard"`

	// PostgreSQL 配置
	PostgreSQLHost     string `env:"POSTGRESQL_HOST" envDefault:"localhost"`
	PostgreSQLPort     string `env:"POSTGRESQL_PORT" envDefault:"5432"`
	PostgreSQLUser     string `env:"POSTGRESQL_USER" envDefault:"postgres"`
	PostgreSQLPassword string `env:"POSTGRESQL_PASSWORD" envDefault:"postgres"`
	PostgreSQLDatabase string `env:"POSTGRESQL_DATABASE" envDefault:"solguard"`
	PostgreSQLSchema   string `env:"POSTGRESQL_SCHEMA" envDefault:"public"`
	PostgreSQLSSLMode  string `env:"POSTGRESQL_SSLMODE" envDefault:"disable"`
	PostgreSQLMaxIdle  int    `env:"POSTGRESQL_MAX_IDLE" envDefault:"30"`
	PostgreSQLMaxOpen  int    `env:"POSTGRESQL_MAX_OPEN" envDefault:"200"`

	// Redis 配置
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" envDefault:"solg"`

	// RabbitMQ 配置
	RabbitMQAddr     string `env:"RABBITMQ_ADDR" envDefault:"localhost"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	RabbitMQUsername string `env:"RABBITMQ_USERNAME" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQVhost    string `env:"RABBITMQ_VHOST" envDefault:"/"`

	// JWT 配置
	JWTSecret        string `env:"JWT_SECRET"` // 必填，用于签名 JWT
	JWTExpireMinutes int    `env:"JWT_EXPIRE_MINUTES" envDefault:"30"`
	JWTRefreshDays   int    `env:"JWT_REFRESH_DAYS" envDefault:"7"`

	// 短信服务配置
	// AccessKey 通过阿里云 SDK 的环境变量自动获取：
	// ALIBABA_CLOUD_ACCESS_KEY_ID / ALIBABA_CLOUD_ACCESS_KEY_SECRET
	SMSProvider         string `env:"SMS_PROVIDER" envDefault:"aliyun"` // aliyun, mock
	SMSSignName         string `env:"SMS_SIGN_NAME"`
	SMSAlertTemplate    string `env:"SMS_ALERT_TEMPLATE_CODE"`    // 紧急联系人告警模板
	SMSReminderTemplate string `env:"SMS_REMINDER_TEMPLATE_CODE"` // 打卡提醒模板

	// 加密配置
	EncryptionKey string `env:"ENCRYPTION_KEY"` // 用于加密联系人手机号，32字节 AES-256
	PhoneHashSalt string `env:"PHONEHASH_SALT"`

	// Snowflake ID 生成器配置
	SnowflakeMachineID  int64 `env:"SNOWFLAKE_MACHINE_ID" envDefault:"1"`
	SnowflakeDataCenter int64 `env:"SNOWFLAKE_DATACENTER_ID" envDefault:"1"`

	// 日志配置
	LoggerLevel      string `env:"LOGGER_LEVEL" envDefault:"INFO"`
	LoggerFormat     string `env:"LOGGER_FORMAT" envDefault:"text"` // json, text
	LoggerOutputPath string `env:"LOGGER_OUTPUT_PATH" envDefault:"stdout"`

	// 链路追踪配置
	TracingEnabled     bool    `env:"TRACING_ENABLED" envDefault:"false"`
	TracingEndpoint    string  `env:"TRACING_ENDPOINT" envDefault:"localhost:4317"`
	TracingSampleRatio float64 `env:"TRACING_SAMPLE_RATIO" envDefault:"0.1"`

	// 速率限制配置, 配置在中间件内
	RateLimitEnabled bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitRPS     int  `env:"RATE_LIMIT_RPS" envDefault:"100"` // 每秒请求数

	// 调度配置
	// CheckInSatisfiesAll: 产品上只有一个"我很好"按钮，一次打卡默认满足所有
	// 当前打开的窗口；置为 false 时仅满足截止时间最近的一个窗口。
	CheckInSatisfiesAll bool `env:"CHECKIN_SATISFIES_ALL" envDefault:"true"`
	// EvaluateIntervalSeconds: 调度器评估周期
	EvaluateIntervalSeconds int `env:"EVALUATE_INTERVAL_SECONDS" envDefault:"60"`
	// EscalationStaleHours: 窗口超时超过该时长后只记账不再告警（离线补偿）
	EscalationStaleHours int `env:"ESCALATION_STALE_HOURS" envDefault:"24"`
	// DefaultGraceMinutes: 新建日程未指定宽限期时的默认值
	DefaultGraceMinutes int `env:"DEFAULT_GRACE_MINUTES" envDefault:"30"`
	// ReminderLeadMinutes: 截止前多久投递打卡提醒
	ReminderLeadMinutes int `env:"REMINDER_LEAD_MINUTES" envDefault:"15"`

	// 资源上限
	MaxSchedulesPerUser int `env:"MAX_SCHEDULES_PER_USER" envDefault:"10"`
	MaxContactsPerUser  int `env:"MAX_CONTACTS_PER_USER" envDefault:"5"`
}

func init() {

	if err := godotenv.Load(); err != nil {

		log.Printf("WARN: Cannot load .env file: %v, using environment variables", err)
	}

	Cfg = Config{}
	if err := env.Parse(&Cfg); err != nil {
		log.Fatalf("Failed to parse environment variables: %v", err)
	}
}

// MustValidate 强校验必填配置。放在各 cmd 的 main 里调用而不是 init()，
// 单测导入本包时不至于因为缺环境变量直接退出进程。
func MustValidate() {
	if Cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	if Cfg.EncryptionKey == "" {
		log.Fatal("ENCRYPTION_KEY is required (32 bytes for AES-256)")
	}

	if len(Cfg.EncryptionKey) != 32 {
		log.Fatal("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	if Cfg.SMSSignName == "" {
		log.Printf("WARN: SMS_SIGN_NAME is not set, SMS service may not work properly")
	}
	if Cfg.SMSAlertTemplate == "" {
		log.Printf("WARN: SMS_ALERT_TEMPLATE_CODE is not set, contact alerts may not work")
	}
}

func (c *Config) GetDSN() string {
	return "host=" + c.PostgreSQLHost +
		" port=" + c.PostgreSQLPort +
		" user=" + c.PostgreSQLUser +
		" password=" + c.PostgreSQLPassword +
		" dbname=" + c.PostgreSQLDatabase +
		" sslmode=" + c.PostgreSQLSSLMode +
		" search_path=" + c.PostgreSQLSchema
}

func (c *Config) GetRabbitMQURL() string {
	return "amqp://" + c.RabbitMQUsername + ":" + c.RabbitMQPassword + "@" + c.RabbitMQAddr + ":" + c.RabbitMQPort + c.RabbitMQVhost
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
