package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the pet shop ordering system
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Redis    RedisConfig    `yaml:"redis"`
	Orders   OrdersConfig   `yaml:"orders"`
	Admin    AdminConfig    `yaml:"admin"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	MaxConns int    `yaml:"max_conns"`
}

// RabbitMQConfig holds RabbitMQ connection configuration
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// RedisConfig holds the optional Redis fast-path configuration.
// An empty host disables the Redis cooldown gate entirely.
type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	DB   int    `yaml:"db"`
}

// OrdersConfig holds order submission tuning
type OrdersConfig struct {
	CooldownSeconds int `yaml:"cooldown_seconds"`
	MaxItems        int `yaml:"max_items"`
}

// AdminConfig holds the shared token gating the stock management endpoints
type AdminConfig struct {
	Token string `yaml:"token"`
}

// Load reads configuration from a YAML file
func Load(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := &Config{}
	scanner := bufio.NewScanner(file)

	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Check for section headers
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			currentSection = strings.TrimSuffix(line, ":")
			continue
		}

		// Parse key-value pairs
		if strings.Contains(line, ":") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}

			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if err := config.setValue(currentSection, key, value); err != nil {
				return nil, fmt.Errorf("failed to set config value %s.%s: %w", currentSection, key, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyDefaults()

	return config, nil
}

// applyDefaults fills in values a config file may omit
func (c *Config) applyDefaults() {
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = 16
	}
	if c.Orders.CooldownSeconds <= 0 {
		c.Orders.CooldownSeconds = 60
	}
	if c.Orders.MaxItems <= 0 {
		c.Orders.MaxItems = 50
	}
	if c.Redis.Host != "" && c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
}

// setValue sets a configuration value based on section and key
func (c *Config) setValue(section, key, value string) error {
	switch section {
	case "database":
		return c.setDatabaseValue(key, value)
	case "rabbitmq":
		return c.setRabbitMQValue(key, value)
	case "redis":
		return c.setRedisValue(key, value)
	case "orders":
		return c.setOrdersValue(key, value)
	case "admin":
		return c.setAdminValue(key, value)
	default:
		return fmt.Errorf("unknown section: %s", section)
	}
}

// setDatabaseValue sets database configuration values
func (c *Config) setDatabaseValue(key, value string) error {
	switch key {
	case "host":
		c.Database.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Database.Port = port
	case "user":
		c.Database.User = value
	case "password":
		c.Database.Password = value
	case "database":
		c.Database.Database = value
	case "max_conns":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_conns value: %w", err)
		}
		c.Database.MaxConns = n
	default:
		return fmt.Errorf("unknown database key: %s", key)
	}
	return nil
}

// setRabbitMQValue sets RabbitMQ configuration values
func (c *Config) setRabbitMQValue(key, value string) error {
	switch key {
	case "host":
		c.RabbitMQ.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.RabbitMQ.Port = port
	case "user":
		c.RabbitMQ.User = value
	case "password":
		c.RabbitMQ.Password = value
	default:
		return fmt.Errorf("unknown rabbitmq key: %s", key)
	}
	return nil
}

// setRedisValue sets Redis configuration values
func (c *Config) setRedisValue(key, value string) error {
	switch key {
	case "host":
		c.Redis.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid port value: %w", err)
		}
		c.Redis.Port = port
	case "db":
		db, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}
		c.Redis.DB = db
	default:
		return fmt.Errorf("unknown redis key: %s", key)
	}
	return nil
}

// setOrdersValue sets order submission tuning values
func (c *Config) setOrdersValue(key, value string) error {
	switch key {
	case "cooldown_seconds":
		secs, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid cooldown_seconds value: %w", err)
		}
		if secs < 0 {
			return fmt.Errorf("cooldown_seconds must not be negative")
		}
		c.Orders.CooldownSeconds = secs
	case "max_items":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid max_items value: %w", err)
		}
		c.Orders.MaxItems = n
	default:
		return fmt.Errorf("unknown orders key: %s", key)
	}
	return nil
}

// setAdminValue sets admin configuration values
func (c *Config) setAdminValue(key, value string) error {
	switch key {
	case "token":
		c.Admin.Token = value
	default:
		return fmt.Errorf("unknown admin key: %s", key)
	}
	return nil
}

// DatabaseURL returns a PostgreSQL connection URL
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}

// RedisAddr returns the Redis host:port address, or "" when Redis is disabled
func (c *Config) RedisAddr() string {
	if c.Redis.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
