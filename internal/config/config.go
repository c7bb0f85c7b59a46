package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env       string `mapstructure:"env"`
	Port      int    `mapstructure:"port"`
	JWTSecret string `mapstructure:"jwt_secret"`
	ClientURL string `mapstructure:"client_url"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr   string `mapstructure:"addr"`
	Pass   string `mapstructure:"password"`
	DB     int    `mapstructure:"db"`
	Prefix string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers          []string `mapstructure:"brokers"`
	TopicMessageSent string   `mapstructure:"topic_message_sent"`
}

type S3Config struct {
	Region     string `mapstructure:"region"`
	Bucket     string `mapstructure:"bucket"`
	KeyPrefix  string `mapstructure:"key_prefix"`
	PublicRead bool   `mapstructure:"public_read"`
}

type WSConfig struct {
	PingIntervalSeconds  int   `mapstructure:"ping_interval_seconds"`
	WriteDeadlineSeconds int   `mapstructure:"write_deadline_seconds"`
	MaxMessageSizeBytes  int64 `mapstructure:"max_message_size_bytes"`
}

type ChatConfig struct {
	MaxTextLength   int `mapstructure:"max_text_length"`
	TypingExpiryMs  int `mapstructure:"typing_expiry_ms"`
	SendRateLimit   int `mapstructure:"send_rate_limit"`
	SendRateWindowS int `mapstructure:"send_rate_window_seconds"`
	MaxUploadBytes  int `mapstructure:"max_upload_bytes"`
}

type Config struct {
	App   AppConfig   `mapstructure:"app"`
	Mongo MongoConfig `mapstructure:"mongo"`
	Redis RedisConfig `mapstructure:"redis"`
	Kafka KafkaConfig `mapstructure:"kafka"`
	S3    S3Config    `mapstructure:"s3"`
	WS    WSConfig    `mapstructure:"ws"`
	Chat  ChatConfig  `mapstructure:"chat"`

	// derived
	PingInterval   time.Duration
	WriteDeadline  time.Duration
	TypingExpiry   time.Duration
	SendRateWindow time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if c.App.Port == 0 {
		c.App.Port = 5000
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "novawrite"
	}
	if c.WS.PingIntervalSeconds == 0 {
		c.WS.PingIntervalSeconds = 25
	}
	if c.WS.WriteDeadlineSeconds == 0 {
		c.WS.WriteDeadlineSeconds = 10
	}
	if c.WS.MaxMessageSizeBytes == 0 {
		c.WS.MaxMessageSizeBytes = 65536
	}
	if c.Chat.MaxTextLength == 0 {
		c.Chat.MaxTextLength = 4000
	}
	if c.Chat.TypingExpiryMs == 0 {
		c.Chat.TypingExpiryMs = 3000
	}
	if c.Chat.SendRateLimit == 0 {
		c.Chat.SendRateLimit = 30
	}
	if c.Chat.SendRateWindowS == 0 {
		c.Chat.SendRateWindowS = 60
	}
	if c.Chat.MaxUploadBytes == 0 {
		c.Chat.MaxUploadBytes = 5 << 20
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "novawrite"
	}

	c.PingInterval = time.Duration(c.WS.PingIntervalSeconds) * time.Second
	c.WriteDeadline = time.Duration(c.WS.WriteDeadlineSeconds) * time.Second
	c.TypingExpiry = time.Duration(c.Chat.TypingExpiryMs) * time.Millisecond
	c.SendRateWindow = time.Duration(c.Chat.SendRateWindowS) * time.Second
	return &c, nil
}
