package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host string
	Port int
}

type DB struct {
	Driver string // mysql | sqlite
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
	Path   string // sqlite only
}

type Redis struct {
	Addr string // rỗng -> dùng store in-memory
	DB   int
}

type JWT struct {
	Secret string
	Issuer string
	ExpMin int
}

type Selection struct {
	SnapshotTTL time.Duration
	MatchAll    bool // true: worker phải có ĐỦ các tag; mặc định ANY
}

type Async struct {
	TTL       time.Duration // deadline claim kể từ lúc tạo
	Retention time.Duration // giữ kết quả done/error/expired bao lâu
	Workers   int
}

type Scheduler struct {
	Tick           time.Duration
	LeaseTTL       time.Duration
	AsyncThreshold int // fan-out lớn hơn ngưỡng này thì bọc async request
}

type Config struct {
	HTTP      HTTP
	DB        DB
	Redis     Redis
	JWT       JWT
	Selection Selection
	Async     Async
	Scheduler Scheduler
	LogLevel  string
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("fleet.host", "127.0.0.1")
	v.SetDefault("fleet.port", 9600)
	v.SetDefault("fleet.db.driver", "mysql")
	v.SetDefault("fleet.db.host", "127.0.0.1")
	v.SetDefault("fleet.db.port", 3306)
	v.SetDefault("fleet.db.user", "root")
	v.SetDefault("fleet.db.pass", "")
	v.SetDefault("fleet.db.name", "rigfleet")
	v.SetDefault("fleet.db.path", "rigfleet.db")
	v.SetDefault("fleet.redis.addr", "")
	v.SetDefault("fleet.redis.db", 0)
	v.SetDefault("fleet.selection.snapshot_ttl", "5m")
	v.SetDefault("fleet.selection.match_all", false)
	v.SetDefault("fleet.async.ttl", "3m")
	v.SetDefault("fleet.async.retention", "1h")
	v.SetDefault("fleet.async.workers", 4)
	v.SetDefault("fleet.scheduler.tick", "30s")
	v.SetDefault("fleet.scheduler.lease_ttl", "60s")
	v.SetDefault("fleet.scheduler.async_threshold", 50)
	v.SetDefault("fleet.log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		HTTP: HTTP{Host: v.GetString("fleet.host"), Port: v.GetInt("fleet.port")},
		DB: DB{
			Driver: v.GetString("fleet.db.driver"),
			Host:   v.GetString("fleet.db.host"),
			Port:   v.GetInt("fleet.db.port"),
			User:   v.GetString("fleet.db.user"),
			Pass:   v.GetString("fleet.db.pass"),
			Name:   v.GetString("fleet.db.name"),
			Path:   v.GetString("fleet.db.path"),
		},
		Redis: Redis{Addr: v.GetString("fleet.redis.addr"), DB: v.GetInt("fleet.redis.db")},
		Selection: Selection{
			SnapshotTTL: v.GetDuration("fleet.selection.snapshot_ttl"),
			MatchAll:    v.GetBool("fleet.selection.match_all"),
		},
		Async: Async{
			TTL:       v.GetDuration("fleet.async.ttl"),
			Retention: v.GetDuration("fleet.async.retention"),
			Workers:   v.GetInt("fleet.async.workers"),
		},
		Scheduler: Scheduler{
			Tick:           v.GetDuration("fleet.scheduler.tick"),
			LeaseTTL:       v.GetDuration("fleet.scheduler.lease_ttl"),
			AsyncThreshold: v.GetInt("fleet.scheduler.async_threshold"),
		},
		LogLevel: v.GetString("fleet.log_level"),
	}
	cfg.JWT.Secret = v.GetString("fleet.jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("fleet.jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "rigfleet"
	}
	cfg.JWT.ExpMin = v.GetInt("fleet.jwt.exp_min")
	if cfg.JWT.ExpMin <= 0 {
		cfg.JWT.ExpMin = 60
	}
	return cfg, nil
}
