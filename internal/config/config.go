package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Database struct {
		DSN                string `env:"DSN,required"`
		ConnectTimeout     int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout       int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		TransactionTimeout int    `env:"TRANSACTION_TIMEOUT" envDefault:"20"`
		MaxOpenConns       int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns       int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime        int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	// 面向合同管理服务的三种查询，各自有独立的超时时间（单位为秒）
	Lookup struct {
		HolidayTimeout          int `env:"HOLIDAY_TIMEOUT" envDefault:"5"`
		LocationClosedTimeout   int `env:"LOCATION_CLOSED_TIMEOUT" envDefault:"5"`
		ContractScheduleTimeout int `env:"CONTRACT_SCHEDULE_TIMEOUT" envDefault:"10"`
	} `envPrefix:"LOOKUP_"`
	Redis struct {
		Host                     string `env:"HOST" envDefault:"localhost"`
		Port                     int    `env:"PORT" envDefault:"6379"`
		Password                 string `env:"PASSWORD,required"`
		LockExpiration           int    `env:"LOCK_EXPIRATION" envDefault:"600"`
		DiagnosisCacheExpiration int    `env:"DIAGNOSIS_CACHE_EXPIRATION" envDefault:"60"`
	} `envPrefix:"REDIS_"`
	Trigger struct {
		RunAt         string `env:"RUN_AT" envDefault:"06:30"`           // 每天的触发时刻（挂钟时间）
		Timezone      string `env:"TIMEZONE" envDefault:"Asia/Shanghai"` // 计算触发时刻所用的时区
		AdvanceDays   int    `env:"ADVANCE_DAYS" envDefault:"30"`        // 每次生成向未来推进的天数
		LookaheadDays int    `env:"LOOKAHEAD_DAYS" envDefault:"7"`       // 剩余班次不足这么多天时需要补充生成
	} `envPrefix:"TRIGGER_"`
	Seed struct {
		User struct {
			Password string `env:"PASSWORD,required"`
		} `envPrefix:"USER_"`
		EmailDomain string `env:"EMAIL_DOMAIN" envDefault:"example.com"`
	} `envPrefix:"SEED_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
	}

	return cfg, nil
}
