package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/clinic-scheduler/internal/config"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	logger = logging.OrDefault(logger)
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// Postgres holds the two handles onto the database: the pgx pool used by the
// booking and rule repositories, and a database/sql handle for reporting.
type Postgres struct {
	Pool *pgxpool.Pool
	DB   *sql.DB
}

// Close releases both handles.
func (p *Postgres) Close() {
	if p == nil {
		return
	}
	if p.Pool != nil {
		p.Pool.Close()
	}
	if p.DB != nil {
		_ = p.DB.Close()
	}
}

// Ping checks the pool; used by /health.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

// ConnectPostgres opens both handles. An empty DATABASE_URL returns nil so
// callers fall back to in-memory stores.
func ConnectPostgres(ctx context.Context, databaseURL string, logger *logging.Logger) (*Postgres, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, nil
	}
	logger = logging.OrDefault(logger)

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: parse database url: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: open reporting db: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	logger.Info("connected to postgres")
	return &Postgres{Pool: pool, DB: db}, nil
}

// LoadLocation resolves the clinic timezone, defaulting to UTC.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: invalid CLINIC_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}
