package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	BlobBackend  string // "mongo" or "disk"
	BlobDir      string // Physical directory for disk-backed blobs
	LegacyDir    string // Root of the pre-migration uploads directory
	MaxUploadMB  int64  // Size cap for resource uploads
	MaxAvatarMB  int64  // Size cap for profile pictures
	OrphanSweep  bool   // Enable the periodic orphaned-blob sweep
	OrphanMinAge int64  // Minimum age in hours before an orphan is eligible
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "edushare"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "edushare"),

		BlobBackend:  getEnv("BLOB_BACKEND", "mongo"),
		BlobDir:      getEnv("BLOB_DIR", "./uploads"),
		LegacyDir:    getEnv("LEGACY_DIR", "./uploads"),
		MaxUploadMB:  getEnvInt("MAX_UPLOAD_MB", 10),
		MaxAvatarMB:  getEnvInt("MAX_AVATAR_MB", 5),
		OrphanSweep:  getEnv("ORPHAN_SWEEP", "true") == "true",
		OrphanMinAge: getEnvInt("ORPHAN_MIN_AGE_HOURS", 24),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		log.Printf("Invalid value for %s, using default %d", key, fallback)
	}
	return fallback
}
