package config

import (
	"os"
	"time"
)

type Config struct {
	ServerAddress string

	// Firebase (Auth + Firestore). When ProjectID is empty the server runs
	// on the in-memory store with JSON snapshot persistence.
	FirebaseProjectID       string
	FirebaseCredentialsJSON string
	FirebaseWebAPIKey       string

	// Cloudinary image storage. When CloudName is empty images are kept on
	// local disk under UploadDir and served at /uploads/.
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Mongo audit/notification log. Optional.
	MongoURI string
	MongoDB  string

	JWTSecret      string
	JWTExpiration  time.Duration
	AdminJWTSecret string

	DataDir   string
	UploadDir string

	// Profile creation rate limit (trailing window).
	RateLimitWindow time.Duration
	RateLimitMax    int
}

func Load() *Config {
	return &Config{
		ServerAddress:           getEnv("SERVER_ADDRESS", ":8080"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsJSON: getEnv("FIREBASE_CREDENTIALS_JSON", ""),
		FirebaseWebAPIKey:       getEnv("FIREBASE_WEB_API_KEY", ""),
		CloudinaryCloudName:     getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:        getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret:     getEnv("CLOUDINARY_API_SECRET", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDB:                 getEnv("MONGO_DB", "beer"),
		JWTSecret:               getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:           24 * time.Hour,
		AdminJWTSecret:          getEnv("ADMIN_JWT_SECRET", ""),
		DataDir:                 getEnv("DATA_DIR", "./data"),
		UploadDir:               getEnv("UPLOAD_DIR", "./uploads"),
		RateLimitWindow:         time.Hour,
		RateLimitMax:            3,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
