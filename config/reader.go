package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type ConfigSchema struct {
	Databases struct {
		// Driver is "postgres" or "sqlite".
		Driver     string     `yaml:"driver"`
		SQLitePath string     `yaml:"sqlite_path"`
		Master     DBConfig   `yaml:"master"`
		Replicas   []DBConfig `yaml:"replicas"`
	} `yaml:"db"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Backend struct {
		Host        string   `yaml:"host"`
		Port        int      `yaml:"port"`
		CorsOrigins []string `yaml:"cors_origins"`
	} `yaml:"backend"`
	Cache struct {
		IndexTTL time.Duration `yaml:"index_ttl"`
	} `yaml:"cache"`
	Pagination struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"pagination"`
	Media struct {
		Root         string `yaml:"root"`
		MaxImageSize int64  `yaml:"max_image_size"`
	} `yaml:"media"`
	Auth struct {
		LoginURL        string `yaml:"login_url"`
		TrustUserHeader bool   `yaml:"trust_user_header"`
	} `yaml:"auth"`
	Logs struct {
		Level         string        `yaml:"level"`
		SlowThreshold time.Duration `yaml:"slow_threshold"`
	} `yaml:"logs"`
}

var AppConfig *ConfigSchema

// Default returns a configuration usable without a config file: sqlite
// storage, in-process page cache and no message broker.
func Default() *ConfigSchema {
	conf := &ConfigSchema{}
	conf.Databases.Driver = "sqlite"
	conf.Databases.SQLitePath = "blog.db"
	conf.Databases.Master.Port = 5432
	conf.Redis.Port = 6379
	conf.RabbitMQ.Queue = "post_events_push"
	conf.Backend.Host = "0.0.0.0"
	conf.Backend.Port = 8080
	conf.Backend.CorsOrigins = []string{"*"}
	conf.Cache.IndexTTL = 20 * time.Second
	conf.Pagination.PageSize = 10
	conf.Media.Root = "media"
	conf.Media.MaxImageSize = 5 << 20
	conf.Auth.LoginURL = "/auth/login/"
	conf.Logs.Level = "warn"
	conf.Logs.SlowThreshold = time.Second
	return conf
}

// LoadConfig reads the YAML file on top of the defaults, then applies .env
// and environment overrides. A missing file is not an error.
func LoadConfig(filePath string) error {
	conf := Default()

	data, err := os.ReadFile(filePath)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, conf); err != nil {
			return err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return err
	}

	// .env is optional
	_ = godotenv.Load()
	applyEnv(conf)

	AppConfig = conf
	return nil
}

func applyEnv(conf *ConfigSchema) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("BLOG_DB_DRIVER", &conf.Databases.Driver)
	setString("BLOG_DB_SQLITE_PATH", &conf.Databases.SQLitePath)
	setString("BLOG_DB_HOST", &conf.Databases.Master.Host)
	setInt("BLOG_DB_PORT", &conf.Databases.Master.Port)
	setString("BLOG_DB_USER", &conf.Databases.Master.User)
	setString("BLOG_DB_PASSWORD", &conf.Databases.Master.Password)
	setString("BLOG_DB_NAME", &conf.Databases.Master.DBName)
	setString("BLOG_REDIS_HOST", &conf.Redis.Host)
	setInt("BLOG_REDIS_PORT", &conf.Redis.Port)
	setString("BLOG_REDIS_PASSWORD", &conf.Redis.Password)
	setString("BLOG_RABBITMQ_URL", &conf.RabbitMQ.URL)
	setString("BLOG_MEDIA_ROOT", &conf.Media.Root)
	setInt("PORT", &conf.Backend.Port)

	if conf.Redis.Host != "" {
		conf.Redis.Enabled = true
	}
}
