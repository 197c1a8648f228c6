package config

import (
	"time"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Settings is the typed view of the environment the server runs with.
type Settings struct {
	Port        string
	Environment string
	DatabaseURL string

	JWT   JWTSettings
	Admin AdminSettings
	Media MediaSettings

	CORSOrigins []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type JWTSettings struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type AdminSettings struct {
	Email    string
	Password string
}

type MediaSettings struct {
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	Folder          string
}

func (s Settings) IsProduction() bool {
	return s.Environment == EnvProduction
}

// Load reads Settings from an environment map as returned by New.
func Load(c map[string]string) Settings {
	return Settings{
		Port:        GetString(c, "PORT", "4000"),
		Environment: GetString(c, "APP_ENV", GetString(c, "NODE_ENV", EnvDevelopment)),
		DatabaseURL: GetString(c, "DATABASE_URL", ""),
		JWT: JWTSettings{
			AccessSecret:  GetString(c, "JWT_SECRET", ""),
			RefreshSecret: GetString(c, "JWT_REFRESH_SECRET", ""),
			AccessTTL:     GetDuration(c, "JWT_EXPIRES_IN", 30*time.Minute),
			RefreshTTL:    GetDuration(c, "JWT_REFRESH_EXPIRES_IN", 7*24*time.Hour),
		},
		Admin: AdminSettings{
			Email:    GetString(c, "ADMIN_EMAIL", "admin@demohub.com"),
			Password: GetString(c, "ADMIN_PASSWORD", "admin123"),
		},
		Media: MediaSettings{
			Bucket:          GetString(c, "MEDIA_BUCKET", ""),
			Endpoint:        GetString(c, "MEDIA_ENDPOINT", ""),
			Region:          GetString(c, "MEDIA_REGION", "auto"),
			AccessKeyID:     GetString(c, "MEDIA_ACCESS_KEY_ID", ""),
			SecretAccessKey: GetString(c, "MEDIA_SECRET_ACCESS_KEY", ""),
			PublicURL:       GetString(c, "MEDIA_PUBLIC_URL", ""),
			Folder:          GetString(c, "MEDIA_FOLDER", "demohub/projects"),
		},
		CORSOrigins:  GetStrings(c, "CORS_ORIGIN", []string{"http://localhost:3000", "http://localhost:3001"}),
		ReadTimeout:  time.Duration(GetInt(c, "READ_TIMEOUT_SECONDS", 180)) * time.Second,
		WriteTimeout: time.Duration(GetInt(c, "WRITE_TIMEOUT_SECONDS", 180)) * time.Second,
		IdleTimeout:  time.Duration(GetInt(c, "IDLE_TIMEOUT_SECONDS", 180)) * time.Second,
	}
}
