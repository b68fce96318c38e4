package config

import (
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config holds everything read from the environment. A .env file in the
// working directory is loaded automatically.
type Config struct {
	// DBDriver is "sqlite" or "postgres".
	DBDriver string
	// DBPath is the sqlite file location.
	DBPath string
	// DBUrl is the postgres DSN.
	DBUrl string
	// MediaDir is where image block files are stored.
	MediaDir string
	// HTTPPort is the REST listen port.
	HTTPPort string
}

func LoadConfig() *Config {
	cnf := &Config{
		DBDriver: getEnv("DB_DRIVER", "sqlite"),
		DBPath:   getEnv("DB_PATH", ".dragon/dragon.db"),
		DBUrl:    os.Getenv("DB_URL"),
		MediaDir: getEnv("MEDIA_DIR", ".dragon/media"),
		HTTPPort: getEnv("HTTP_PORT", "8000"),
	}

	return cnf
}

// GetDb opens the configured database.
func GetDb(cnf *Config) *gorm.DB {
	var (
		db  *gorm.DB
		err error
	)

	switch cnf.DBDriver {
	case "postgres":
		db, err = gorm.Open(postgres.Open(cnf.DBUrl), &gorm.Config{})
	default:
		if mkerr := os.MkdirAll(filepath.Dir(cnf.DBPath), os.ModePerm); mkerr != nil {
			logrus.Fatalf("error creating database directory: %v", mkerr)
		}
		db, err = gorm.Open(sqlite.Open(cnf.DBPath), &gorm.Config{})
	}

	if err != nil {
		logrus.Fatalf("error connecting to the database: %v", err)
	}

	return db
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
