package core

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env       string
		Debug     bool
		TestMode  bool
		AppName   string
		SecretKey string

		Server   ServerConfig
		Backend  BackendConfig
		Session  SessionConfig
		Frontend FrontendConfig

		RollbarToken string
	}

	ServerConfig struct {
		Addr            string
		ShutdownTimeout time.Duration
	}

	// BackendConfig points at the school API server this gateway fronts.
	BackendConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	SessionConfig struct {
		CookieName      string
		CookieMaxAge    time.Duration
		ExchangeCodeTTL time.Duration
		TabTTL          time.Duration
		MaxTabs         int
	}

	FrontendConfig struct {
		BaseURL         string // used to absolutize relative return URLs
		AdminLandingURL string
	}
)

func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Resultdesk")
	conf.SetDefault("secretKey", "x1f(h8u_d&bl2m%trg#+ys@=k^3qz7!wc4j$0vne96pao5)mi")
	conf.SetDefault("serverAddr", ":8000")
	conf.SetDefault("shutdownTimeout", 20*time.Second)
	conf.SetDefault("backendBaseURL", "http://localhost:5000")
	conf.SetDefault("backendTimeout", 30*time.Second)
	conf.SetDefault("sessionCookieName", "resultdesk_session")
	conf.SetDefault("sessionCookieMaxAge", 12*time.Hour)
	conf.SetDefault("exchangeCodeTTL", 2*time.Minute)
	conf.SetDefault("tabTTL", 2*time.Hour)
	conf.SetDefault("maxTabs", 1024)
	conf.SetDefault("frontendBaseURL", "http://localhost:8000")
	conf.SetDefault("adminLandingURL", "/admin")
	conf.SetDefault("rollbarToken", "")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := ".env." + strings.ToLower(env)
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Env:       env,
		Debug:     conf.GetBool("debug"),
		TestMode:  conf.GetBool("testMode"),
		AppName:   conf.GetString("appName"),
		SecretKey: conf.GetString("secretKey"),
		Server: ServerConfig{
			Addr:            conf.GetString("serverAddr"),
			ShutdownTimeout: conf.GetDuration("shutdownTimeout"),
		},
		Backend: BackendConfig{
			BaseURL: conf.GetString("backendBaseURL"),
			Timeout: conf.GetDuration("backendTimeout"),
		},
		Session: SessionConfig{
			CookieName:      conf.GetString("sessionCookieName"),
			CookieMaxAge:    conf.GetDuration("sessionCookieMaxAge"),
			ExchangeCodeTTL: conf.GetDuration("exchangeCodeTTL"),
			TabTTL:          conf.GetDuration("tabTTL"),
			MaxTabs:         conf.GetInt("maxTabs"),
		},
		Frontend: FrontendConfig{
			BaseURL:         conf.GetString("frontendBaseURL"),
			AdminLandingURL: conf.GetString("adminLandingURL"),
		},
		RollbarToken: conf.GetString("rollbarToken"),
	}
}
