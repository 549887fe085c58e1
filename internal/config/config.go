// Package config defines the necessary types to configure the application.
// An example config file config.yaml is provided in the repository.
package config

import (
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
)

type Config struct {
	commoncfg.BaseConfig `mapstructure:",squash" yaml:",inline"`

	HTTP     HTTPServer `yaml:"http"`
	Upstream Upstream   `yaml:"upstream"`

	CredentialStore CredentialStore `yaml:"credentialStore"`
	Database        Database        `yaml:"database"`
	ValKey          ValKey          `yaml:"valkey"`
	SQLite          SQLite          `yaml:"sqlite"`
	Migrate         Migrate         `yaml:"migrate"`

	Session     Session     `yaml:"session"`
	Gate        Gate        `yaml:"gate"`
	Housekeeper Housekeeper `yaml:"housekeeper"`
}

type HTTPServer struct {
	Address         string        `yaml:"address" default:":8080"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" default:"5s"`
}

// Upstream locates the marketplace API and the application served behind the gate.
type Upstream struct {
	AuthURL string        `yaml:"authURL" default:"http://localhost:3000/api"`
	AppURL  string        `yaml:"appURL" default:"http://localhost:3001"`
	Timeout time.Duration `yaml:"timeout" default:"10s"`
}

type StoreKind string

const (
	StoreKindValKey   StoreKind = "valkey"
	StoreKindPostgres StoreKind = "postgres"
	StoreKindSQLite   StoreKind = "sqlite"
	StoreKindMemory   StoreKind = "memory"
)

type CredentialStore struct {
	// Primary selects the durable tier. The fallback tier is always in memory.
	Primary StoreKind `yaml:"primary" default:"valkey"`
	// RecordTTL bounds how long a primary record lives; zero keeps records until cleared.
	RecordTTL time.Duration `yaml:"recordTTL" default:"168h"`
	// FallbackTTL bounds records on the fallback tier, which only lives as long as the process.
	FallbackTTL             time.Duration `yaml:"fallbackTTL" default:"12h"`
	FallbackCleanupInterval time.Duration `yaml:"fallbackCleanupInterval" default:"5m"`
}

type Database struct {
	Name     string              `yaml:"name"`
	Port     string              `yaml:"port"`
	Host     commoncfg.SourceRef `yaml:"host"`
	User     commoncfg.SourceRef `yaml:"user"`
	Password commoncfg.SourceRef `yaml:"password"`
	SSLMode  string              `yaml:"sslMode"`
	MaxConns int32               `yaml:"maxConns" default:"10"`
}

type ValKey struct {
	Host      commoncfg.SourceRef `yaml:"host"`
	User      commoncfg.SourceRef `yaml:"user"`
	Password  commoncfg.SourceRef `yaml:"password"`
	SecretRef commoncfg.SecretRef `yaml:"secretRef"`
	Prefix    string              `yaml:"prefix" default:"session-gateway"`
}

type SQLite struct {
	Path string `yaml:"path" default:"session-gateway.db"`
}

type Migrate struct {
	Source string `yaml:"source" default:"embedded"`
}

type Session struct {
	DefaultLifetime time.Duration  `yaml:"defaultLifetime" default:"15m"`
	AdminRole       string         `yaml:"adminRole" default:"admin"`
	IdleTimeout     time.Duration  `yaml:"idleTimeout" default:"30m"`
	CleanupInterval time.Duration  `yaml:"cleanupInterval" default:"1m"`
	ClientCookie    CookieTemplate `yaml:"clientCookie"`
}

type Gate struct {
	LoginPath         string        `yaml:"loginPath" default:"/login"`
	CatalogPath       string        `yaml:"catalogPath" default:"/premium"`
	CheckoutPrefix    string        `yaml:"checkoutPrefix" default:"/premium/checkout"`
	SettleDelay       time.Duration `yaml:"settleDelay" default:"100ms"`
	ProtectedPrefixes []string      `yaml:"protectedPrefixes"`
	AdminPrefixes     []string      `yaml:"adminPrefixes"`
}

type Housekeeper struct {
	Interval time.Duration `yaml:"interval" default:"10m"`
}

type CookieSameSite string

const (
	CookieSameSiteNone   CookieSameSite = "None"
	CookieSameSiteLax    CookieSameSite = "Lax"
	CookieSameSiteStrict CookieSameSite = "Strict"
)

type CookieTemplate struct {
	Name     string         `yaml:"name" default:"sg_client"`
	MaxAge   int            `yaml:"maxAge"`
	Path     string         `yaml:"path" default:"/"`
	Domain   string         `yaml:"domain"`
	Secure   bool           `yaml:"secure"`
	SameSite CookieSameSite `yaml:"sameSite" default:"Lax"`
	HTTPOnly bool           `yaml:"httpOnly" default:"true"`
}
