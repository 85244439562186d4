package config

import "time"

// Config is the service configuration.
type Config struct {
	App       AppConfig       `koanf:"app" json:"app" yaml:"app"`
	Server    ServerConfig    `koanf:"server" json:"server" yaml:"server"`
	Log       LogConfig       `koanf:"log" json:"log" yaml:"log"`
	Tenancy   TenancyConfig   `koanf:"tenancy" json:"tenancy" yaml:"tenancy"`
	Executor  ExecutorConfig  `koanf:"executor" json:"executor" yaml:"executor"`
	Directory DirectoryConfig `koanf:"directory" json:"directory" yaml:"directory"`
	Database  DatabaseConfig  `koanf:"database" json:"database" yaml:"database"`
}

// AppConfig identifies the running service.
type AppConfig struct {
	Name    string `koanf:"name" json:"name" yaml:"name" validate:"required"`
	Version string `koanf:"version" json:"version" yaml:"version" validate:"required"`
	Env     string `koanf:"env" json:"env" yaml:"env" validate:"oneof=development staging production"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `koanf:"host" json:"host" yaml:"host"`
	Port int    `koanf:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// TenancyConfig controls how tenant identity is resolved and enforced.
type TenancyConfig struct {
	// Column is the tenant column of filtered tables.
	Column string `koanf:"column" json:"column" yaml:"column" validate:"required"`
	// Sentinel is the predicate value for reads without a bound tenant. Tenant ids are
	// positive, so it must be zero or negative.
	Sentinel int64        `koanf:"sentinel" json:"sentinel" yaml:"sentinel" validate:"max=0"`
	Ignore   IgnoreConfig `koanf:"ignore" json:"ignore" yaml:"ignore"`
	Header   HeaderConfig `koanf:"header" json:"header" yaml:"header"`
}

// IgnoreConfig lists tables exempt from tenant filtering.
type IgnoreConfig struct {
	Tables   []string `koanf:"tables" json:"tables" yaml:"tables"`
	Prefixes []string `koanf:"prefixes" json:"prefixes" yaml:"prefixes"`
}

// HeaderConfig names the request headers carrying the authenticated identity.
type HeaderConfig struct {
	Tenant string `koanf:"tenant" json:"tenant" yaml:"tenant" validate:"required"`
	User   string `koanf:"user" json:"user" yaml:"user" validate:"required"`
}

// ExecutorConfig sizes the background worker pool.
type ExecutorConfig struct {
	Workers        int  `koanf:"workers" json:"workers" yaml:"workers" validate:"min=1"`
	Queue          int  `koanf:"queue" json:"queue" yaml:"queue" validate:"min=0"`
	RejectWhenFull bool `koanf:"rejectwhenfull" json:"rejectwhenfull" yaml:"rejectwhenfull"`
}

// DirectoryConfig tunes the tenant directory cache.
type DirectoryConfig struct {
	TTL        time.Duration `koanf:"ttl" json:"ttl" yaml:"ttl" validate:"gt=0"`
	MaxSize    int           `koanf:"maxsize" json:"maxsize" yaml:"maxsize" validate:"min=1"`
	StaleGrace time.Duration `koanf:"stalegrace" json:"stalegrace" yaml:"stalegrace" validate:"min=0"`
}

// DatabaseConfig holds connection settings. An empty Type disables the database.
type DatabaseConfig struct {
	Type             string        `koanf:"type" json:"type" yaml:"type" validate:"omitempty,oneof=postgresql oracle"`
	Host             string        `koanf:"host" json:"host" yaml:"host"`
	Port             int           `koanf:"port" json:"port" yaml:"port" validate:"min=0,max=65535"`
	Database         string        `koanf:"database" json:"database" yaml:"database"`
	Username         string        `koanf:"username" json:"username" yaml:"username"`
	Password         string        `koanf:"password" json:"-" yaml:"password"`
	SSLMode          string        `koanf:"sslmode" json:"sslmode" yaml:"sslmode"`
	ServiceName      string        `koanf:"servicename" json:"servicename" yaml:"servicename"` // oracle
	SID              string        `koanf:"sid" json:"sid" yaml:"sid"`                         // oracle
	ConnectionString string        `koanf:"connectionstring" json:"-" yaml:"connectionstring"`
	MaxConns         int           `koanf:"maxconns" json:"maxconns" yaml:"maxconns" validate:"min=0"`
	MaxIdleConns     int           `koanf:"maxidleconns" json:"maxidleconns" yaml:"maxidleconns" validate:"min=0"`
	ConnMaxLifetime  time.Duration `koanf:"connmaxlifetime" json:"connmaxlifetime" yaml:"connmaxlifetime"`
	ConnMaxIdleTime  time.Duration `koanf:"connmaxidletime" json:"connmaxidletime" yaml:"connmaxidletime"`
	Session          SessionConfig `koanf:"session" json:"session" yaml:"session"`
}

// SessionConfig controls mirroring of worker identity into database session settings.
type SessionConfig struct {
	Mirror bool   `koanf:"mirror" json:"mirror" yaml:"mirror"`
	Prefix string `koanf:"prefix" json:"prefix" yaml:"prefix"`
}

// IsDatabaseConfigured reports whether a database type was set.
func (c *Config) IsDatabaseConfigured() bool {
	return c.Database.Type != ""
}
