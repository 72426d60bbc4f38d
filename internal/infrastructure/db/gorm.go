package db

import (
	"log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

var DefaultPool = PoolConfig{
	MaxOpen:     30,
	MaxIdle:     10,
	MaxLifetime: 30 * time.Minute,
	MaxIdleTime: 10 * time.Minute,
}

// orDefault fills unset fields from DefaultPool.
func (p PoolConfig) orDefault() PoolConfig {
	if p.MaxOpen <= 0 {
		p.MaxOpen = DefaultPool.MaxOpen
	}
	if p.MaxIdle <= 0 {
		p.MaxIdle = DefaultPool.MaxIdle
	}
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	if p.MaxLifetime <= 0 {
		p.MaxLifetime = DefaultPool.MaxLifetime
	}
	if p.MaxIdleTime <= 0 {
		p.MaxIdleTime = DefaultPool.MaxIdleTime
	}
	return p
}

func OpenGorm(dsn string, pool PoolConfig) (*gorm.DB, error) {
	return OpenGormWithDialector(mysql.Open(dsn), pool)
}

// OpenGormWithDialector opens, tunes the pool and pings. Driver errors are
// translated so duplicate keys surface as gorm.ErrDuplicatedKey.
func OpenGormWithDialector(d gorm.Dialector, pool PoolConfig) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Warn),
		TranslateError:       true,
		// pinged below, after the pool is tuned
		DisableAutomaticPing: true,
	}
	db, err := gorm.Open(d, cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	pool = pool.orDefault()
	sqlDB.SetMaxOpenConns(pool.MaxOpen)
	sqlDB.SetMaxIdleConns(pool.MaxIdle)
	sqlDB.SetConnMaxLifetime(pool.MaxLifetime)
	sqlDB.SetConnMaxIdleTime(pool.MaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	slog.Info("gorm: connected", "dialect", d.Name(), "max_open", pool.MaxOpen, "max_idle", pool.MaxIdle)
	return db, nil
}
