package db

import (
	"blog/config"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

var ORM *gorm.DB

func dsnFromConfig(dbConf config.DBConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.Port, dbConf.User, dbConf.Password, dbConf.DBName,
	)
}

func gormConfig() *gorm.Config {
	level := logger.Warn
	slow := time.Second
	if config.AppConfig != nil {
		level = logLevel(config.AppConfig.Logs.Level)
		if config.AppConfig.Logs.SlowThreshold > 0 {
			slow = config.AppConfig.Logs.SlowThreshold
		}
	}
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             slow,
				LogLevel:                  level,
				IgnoreRecordNotFoundError: true,
			},
		),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		// нарушения уникальности приходят как gorm.ErrDuplicatedKey
		TranslateError: true,
	}
}

func logLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

// ConnectDB opens the database described by config.AppConfig, registers
// read replicas when configured and migrates the schema.
func ConnectDB() (err error) {
	if ORM != nil {
		log.Println("ORM is already initialized")
		return nil
	}

	conf := config.AppConfig
	if conf == nil {
		return fmt.Errorf("AppConfig is not loaded")
	}

	var database *gorm.DB
	switch conf.Databases.Driver {
	case "sqlite":
		database, err = OpenSQLite(conf.Databases.SQLitePath)
		if err != nil {
			return err
		}
	case "postgres", "":
		if conf.Databases.Master.Host == "" {
			return fmt.Errorf("Master database configuration is missing")
		}
		database, err = openPostgres(conf)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported database driver %q", conf.Databases.Driver)
	}

	if err = Migrate(database); err != nil {
		return err
	}

	ORM = database
	return nil
}

func openPostgres(conf *config.ConfigSchema) (*gorm.DB, error) {
	masterDSN := dsnFromConfig(conf.Databases.Master)
	replicaDSNs := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	for _, r := range conf.Databases.Replicas {
		replicaDSNs = append(replicaDSNs, postgres.Open(dsnFromConfig(r)))
	}

	database, err := gorm.Open(postgres.Open(masterDSN), gormConfig())
	if err != nil {
		return nil, err
	}

	if len(replicaDSNs) > 0 {
		err = database.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicaDSNs,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, err
		}
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return database, nil
}

// OpenSQLite opens a sqlite database. ":memory:" is pinned to a single
// connection, otherwise every pooled connection would see its own empty DB.
func OpenSQLite(path string) (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}
	return database, nil
}

// GetReadOnlyDB возвращает подключение для чтения (реплики)
func GetReadOnlyDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Read)
}

// GetWriteDB возвращает подключение для записи (мастер)
func GetWriteDB(ctx context.Context) *gorm.DB {
	return ORM.WithContext(ctx).Clauses(dbresolver.Write)
}

// Health reports pool statistics of the primary connection.
func Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	stats := make(map[string]string)
	if ORM == nil {
		stats["status"] = "down"
		stats["error"] = "database is not initialized"
		return stats
	}

	sqlDB, err := ORM.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	dbStats := sqlDB.Stats()
	stats["status"] = "up"
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)
	return stats
}

func Close() error {
	if ORM == nil {
		return nil
	}
	sqlDB, err := ORM.DB()
	if err != nil {
		return err
	}
	ORM = nil
	return sqlDB.Close()
}
