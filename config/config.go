// Package config holds the application configuration tree loaded by
// go-config from config/app.json plus environment overrides.
package config

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
)

type BaseConfig struct {
	App         App         `json:"app"`
	Auth        Auth        `json:"auth"`
	Persistence Persistence `json:"persistence"`
	Cache       Cache       `json:"cache"`
	Views       Views       `json:"views"`
	Payments    Payments    `json:"payments"`
}

func (a BaseConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Auth),
		validation.Field(&a.Persistence),
	)
}

func (a BaseConfig) GetApp() App                 { return a.App }
func (a BaseConfig) GetAuth() Auth               { return a.Auth }
func (a BaseConfig) GetPersistence() Persistence { return a.Persistence }
func (a BaseConfig) GetCache() Cache             { return a.Cache }
func (a BaseConfig) GetViews() Views             { return a.Views }
func (a BaseConfig) GetPayments() Payments       { return a.Payments }

type App struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Environment string `json:"environment"`
}

func (a App) GetName() string {
	if a.Name == "" {
		return "collegia"
	}
	return a.Name
}

func (a App) GetAddress() string {
	if a.Address == "" {
		return ":8080"
	}
	return a.Address
}

// Auth satisfies the session issuer's configuration interface
type Auth struct {
	AccessSigningKey     string `json:"access_signing_key"`
	RefreshSigningKey    string `json:"refresh_signing_key"`
	AccessTTLExpression  string `json:"access_ttl"`
	RefreshTTLExpression string `json:"refresh_ttl"`
	Issuer               string `json:"issuer"`
	Production           bool   `json:"production"`
}

func (a Auth) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.AccessSigningKey, validation.Required),
	)
}

func (a Auth) GetAccessSigningKey() string { return a.AccessSigningKey }

// GetRefreshSigningKey falls back to the access key when no dedicated
// refresh secret is configured.
func (a Auth) GetRefreshSigningKey() string {
	if a.RefreshSigningKey == "" {
		return a.AccessSigningKey
	}
	return a.RefreshSigningKey
}

func (a Auth) GetAccessTokenTTL() time.Duration {
	return parseDurationExpression(a.AccessTTLExpression, 15*time.Minute)
}

func (a Auth) GetRefreshTokenTTL() time.Duration {
	return parseDurationExpression(a.RefreshTTLExpression, 7*24*time.Hour)
}

func (a Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "collegia"
	}
	return a.Issuer
}

func (a Auth) IsProduction() bool { return a.Production }

type Persistence struct {
	Driver                string `json:"driver"`
	DSN                   string `json:"dsn"`
	PingTimeoutExpression string `json:"ping_timeout"`
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.DSN, validation.Required),
	)
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string { return p.DSN }

func (p Persistence) GetPingTimeout() time.Duration {
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

type Cache struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

func (c Cache) GetAddr() string { return c.Addr }

// Enabled reports whether a Redis backend is configured. Without one
// the app runs on the in-process cache.
func (c Cache) Enabled() bool { return c.Addr != "" }

type Views struct {
	Dir       string `json:"dir"`
	Ext       string `json:"ext"`
	AssetsDir string `json:"assets_dir"`
}

func (v Views) GetDir() string {
	if v.Dir == "" {
		return "./views"
	}
	return v.Dir
}

func (v Views) GetExt() string {
	if v.Ext == "" {
		return ".html"
	}
	return v.Ext
}

func (v Views) GetAssetsDir() string { return v.AssetsDir }

type Payments struct {
	WebhookSecret  string `json:"webhook_secret"`
	MeetingBaseURL string `json:"meeting_base_url"`
}

func (p Payments) GetWebhookSecret() string  { return p.WebhookSecret }
func (p Payments) GetMeetingBaseURL() string { return p.MeetingBaseURL }

func parseDurationExpression(expr string, def time.Duration) time.Duration {
	if expr == "" {
		return def
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", expr),
		)
	}
	return dur
}
