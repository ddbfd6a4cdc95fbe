package benchmark

import (
	"context"

	"github.com/danpasecinic/thimble"
)

type Config struct {
	Host string
	Port int
}

type Logger struct {
	Level string
}

type Database struct {
	Config *Config `thimble:"config"`
	Logger *Logger `thimble:"logger"`
}

type Cache struct {
	Logger *Logger `thimble:"logger"`
}

type Repository struct {
	DB    *Database `thimble:"database"`
	Cache *Cache    `thimble:"cache"`
}

type Service struct {
	Repo   *Repository `thimble:"repository"`
	Logger *Logger     `thimble:"logger"`
}

type Husband struct {
	Wife *Wife `thimble:"wife"`
}

type Wife struct {
	Husband *Husband `thimble:"husband"`
}

func defineChain(c *thimble.Container) {
	_ = thimble.DefineValue(c, "config", &Config{Host: "localhost", Port: 8080})
	_ = thimble.DefineValue(c, "logger", &Logger{Level: "info"})
	_ = thimble.DefineStruct[*Database](c, "database")
	_ = thimble.DefineStruct[*Cache](c, "cache")
	_ = thimble.DefineStruct[*Repository](c, "repository")
	_ = thimble.DefineStruct[*Service](c, "service")
}

func defineChainWithRecipes(c *thimble.Container) {
	_ = thimble.DefineValue(c, "config", &Config{Host: "localhost", Port: 8080})
	_ = thimble.DefineValue(c, "logger", &Logger{Level: "info"})
	_ = thimble.Define(
		c, "database", func(ctx context.Context, r thimble.Resolver) (*Database, error) {
			cfg := thimble.MustGet[*Config](ctx, r, "config")
			log := thimble.MustGet[*Logger](ctx, r, "logger")
			return &Database{Config: cfg, Logger: log}, nil
		},
	)
	_ = thimble.Define(
		c, "cache", func(ctx context.Context, r thimble.Resolver) (*Cache, error) {
			log := thimble.MustGet[*Logger](ctx, r, "logger")
			return &Cache{Logger: log}, nil
		},
	)
	_ = thimble.Define(
		c, "repository", func(ctx context.Context, r thimble.Resolver) (*Repository, error) {
			db := thimble.MustGet[*Database](ctx, r, "database")
			cache := thimble.MustGet[*Cache](ctx, r, "cache")
			return &Repository{DB: db, Cache: cache}, nil
		},
	)
	_ = thimble.Define(
		c, "service", func(ctx context.Context, r thimble.Resolver) (*Service, error) {
			repo := thimble.MustGet[*Repository](ctx, r, "repository")
			log := thimble.MustGet[*Logger](ctx, r, "logger")
			return &Service{Repo: repo, Logger: log}, nil
		},
	)
}
