package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Resend     ResendConfig
	Dispatcher DispatcherConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	RabbitMQ   RabbitMQConfig
	OTel       OTelConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port            string
	MetricsAddr     string
	ShutdownTimeout time.Duration
}

type ResendConfig struct {
	APIKey         string
	APIKeySecretID string
	From           string
	ContactEmail   string
	BaseURL        string
}

type DispatcherConfig struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

type RedisConfig struct {
	Addr string
	TTL  time.Duration
}

type KafkaConfig struct {
	Brokers string
	Topic   string
}

type RabbitMQConfig struct {
	URL   string
	Queue string
}

type OTelConfig struct {
	Endpoint    string
	Environment string
}

type LogConfig struct {
	Level string
}

// Load reads defaults, the optional YAML file at path (or RELAY_CONFIG) and
// RELAY_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for existing deployments.
	_ = v.BindEnv("resend.api_key", "RELAY_RESEND_API_KEY", "RESEND_API_KEY")
	_ = v.BindEnv("resend.from", "RELAY_RESEND_FROM", "FROM_EMAIL")
	_ = v.BindEnv("resend.contact_email", "RELAY_RESEND_CONTACT_EMAIL", "CONTACT_EMAIL")

	if path == "" {
		path = v.GetString("config")
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			MetricsAddr:     v.GetString("server.metrics_addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Resend: ResendConfig{
			APIKey:         v.GetString("resend.api_key"),
			APIKeySecretID: v.GetString("resend.api_key_secret_id"),
			From:           v.GetString("resend.from"),
			ContactEmail:   v.GetString("resend.contact_email"),
			BaseURL:        v.GetString("resend.base_url"),
		},
		Dispatcher: DispatcherConfig{
			Workers:     v.GetInt("dispatcher.workers"),
			QueueSize:   v.GetInt("dispatcher.queue_size"),
			SendTimeout: v.GetDuration("dispatcher.send_timeout"),
		},
		Redis: RedisConfig{
			Addr: v.GetString("redis.addr"),
			TTL:  v.GetDuration("redis.ttl"),
		},
		Kafka: KafkaConfig{
			Brokers: v.GetString("kafka.brokers"),
			Topic:   v.GetString("kafka.topic"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("rabbitmq.url"),
			Queue: v.GetString("rabbitmq.queue"),
		},
		OTel: OTelConfig{
			Endpoint:    v.GetString("otel.endpoint"),
			Environment: v.GetString("otel.environment"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.metrics_addr", ":9090")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("resend.api_key", "")
	v.SetDefault("resend.api_key_secret_id", "")
	v.SetDefault("resend.from", "HR Agent <onboarding@resend.dev>")
	v.SetDefault("resend.contact_email", "")
	v.SetDefault("resend.base_url", "")
	v.SetDefault("dispatcher.workers", 4)
	v.SetDefault("dispatcher.queue_size", 256)
	v.SetDefault("dispatcher.send_timeout", time.Duration(0))
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.ttl", 24*time.Hour)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "notification-events")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.queue", "status.notifications")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.environment", "production")
	v.SetDefault("log.level", "info")
}

// Validate checks the values needed to start the relay. It runs after the
// API key has been resolved from Secrets Manager.
func (c *Config) Validate() error {
	var errs []error
	if c.Resend.APIKey == "" {
		errs = append(errs, errors.New("resend api key is not set (RESEND_API_KEY or resend.api_key_secret_id)"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port must not be empty"))
	}
	if c.Dispatcher.Workers < 1 {
		errs = append(errs, fmt.Errorf("dispatcher.workers must be at least 1, got %d", c.Dispatcher.Workers))
	}
	if c.Dispatcher.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("dispatcher.queue_size must be at least 1, got %d", c.Dispatcher.QueueSize))
	}
	if c.Dispatcher.SendTimeout < 0 {
		errs = append(errs, errors.New("dispatcher.send_timeout must not be negative"))
	}
	return errors.Join(errs...)
}
