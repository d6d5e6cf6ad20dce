package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// run modes, mirror of the frontend build modes
const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	AppName  string
	Env      string // DEV (local; default), TEST, QA, PROD
	Build    string
	Debug    bool
	TestMode bool
	Mode     string

	API struct {
		BaseURLLocal  string
		BaseURLDeploy string
		AssetBaseURL  string
		Timeout       time.Duration
		AuthScheme    string
	}

	// MockAPI configures the development backend (apps/api)
	MockAPI struct {
		Host               string
		SecretKey          string
		JWTExpirationDelta time.Duration
		SeedUsername       string
		SeedPassword       string
	}

	SessionFile  string
	RollbarToken string
}

// APIBaseURL picks the backend base URL for the configured run mode.
func (conf *Config) APIBaseURL() string {
	if conf.Mode == ModeDevelopment {
		return conf.API.BaseURLLocal
	}
	return conf.API.BaseURLDeploy
}

// AssetBaseURL is where relative file paths (logos, photos) are served from.
// It falls back to the API base URL, which is what the backend does by default.
func (conf *Config) AssetBaseURL() string {
	if conf.API.AssetBaseURL != "" {
		return conf.API.AssetBaseURL
	}
	return conf.APIBaseURL()
}

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Masomo Admin")
	v.SetDefault("build", "dev")
	v.SetDefault("mode", ModeDevelopment)
	v.SetDefault("apiBaseURLLocal", "http://127.0.0.1:8000")
	v.SetDefault("apiBaseURLDeploy", "")
	v.SetDefault("assetBaseURL", "")
	v.SetDefault("apiTimeout", 5*time.Second)
	v.SetDefault("authScheme", "Token")
	v.SetDefault("sessionFile", defaultSessionFile())
	v.SetDefault("rollbarToken", "")
	v.SetDefault("mockAPIHost", "127.0.0.1:8000")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("seedUsername", "superadmin")
	v.SetDefault("seedPassword", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		Mode:         v.GetString("mode"),
		SessionFile:  v.GetString("sessionFile"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.API.BaseURLLocal = strings.TrimRight(v.GetString("apiBaseURLLocal"), "/")
	conf.API.BaseURLDeploy = strings.TrimRight(v.GetString("apiBaseURLDeploy"), "/")
	conf.API.AssetBaseURL = strings.TrimRight(v.GetString("assetBaseURL"), "/")
	conf.API.Timeout = v.GetDuration("apiTimeout")
	conf.API.AuthScheme = v.GetString("authScheme")
	conf.MockAPI.Host = v.GetString("mockAPIHost")
	conf.MockAPI.SecretKey = v.GetString("secretKey")
	conf.MockAPI.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	conf.MockAPI.SeedUsername = v.GetString("seedUsername")
	conf.MockAPI.SeedPassword = v.GetString("seedPassword")
	return conf
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "masomo-admin", "session.json")
}
