package data

import (
	"context"
	"database/sql"
	"time"

	"autoposter/internal/biz"
	"autoposter/internal/conf"
	"autoposter/internal/pkg/telegram"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisCache,
	NewImageRepo,
	NewLikeRepo,
	NewSnapshotRepo,
	NewLikeCountCache,
	NewDedupFilter,
	NewTelegramClient,
	wire.Bind(new(biz.Publisher), new(*telegram.Client)),
	wire.Bind(new(biz.MemberCounter), new(*telegram.Client)),
)

// Data struct for db client
type Data struct {
	Pool *pgxpool.Pool // pgxpool for queries (pgx/v5)
	DB   *sql.DB       // database/sql for migrations
}

// NewData new a data instance
func NewData(conf *conf.Data, logger log.Logger) (*Data, func(), error) {
	log := log.NewHelper(logger)
	ctx := context.Background()
	// config pool
	pgxConfig, err := newPgxPoolConfig(conf)
	if err != nil {
		return nil, nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pgxConfig)
	if err != nil {
		return nil, nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Also open database/sql for migrations
	db, err := sql.Open(conf.Database.Driver, conf.Database.Source)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	// auto migrate
	if err := RunMigrate(conf, db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cleanup := func() {
		log.Info("closing db connections")
		pool.Close()
		db.Close()
	}

	return &Data{
		Pool: pool,
		DB:   db,
	}, cleanup, nil
}

// newPgxPoolConfig creates a pgxpool.Config from conf.Data
func newPgxPoolConfig(conf *conf.Data) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(conf.Database.Source)
	if err != nil {
		return nil, err
	}
	// Configure connection pool settings
	pool := conf.Database.Pool
	if pool.MaxOpenConns > 0 {
		cfg.MaxConns = pool.MaxOpenConns
	}
	if pool.MinIdleConns > 0 {
		cfg.MinConns = pool.MinIdleConns
	}
	if pool.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = time.Duration(pool.MaxConnLifetime) * time.Minute
	}
	if pool.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = time.Duration(pool.MaxConnIdleTime) * time.Minute
	}

	return cfg, nil
}

// NewTelegramClient builds the bot client from the bot configuration. The
// first sudo user doubles as the operator alert target.
func NewTelegramClient(c *conf.Bot) (*telegram.Client, error) {
	return telegram.NewClient(
		c.Token,
		c.ChannelID,
		c.Operator(),
		time.Duration(c.PollTimeoutSeconds)*time.Second,
	)
}
