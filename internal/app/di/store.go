// Package di はDATABASE_URLとREDIS_ADDRに応じてストア実装を組み立てます。
package di

import (
	"context"
	"errors"
	"fmt"

	"portal_backend/internal/app/config"
	authadapters "portal_backend/internal/feature/auth/adapters"
	"portal_backend/internal/feature/auth/usecase"
	"portal_backend/internal/platform/db"
	healthhandler "portal_backend/internal/platform/http/handler"
	platformmongo "portal_backend/internal/platform/mongo"
	platformredis "portal_backend/internal/platform/redis"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"gorm.io/gorm"
)

// Stores はユーザーストアとセッションストア、およびそれらの後始末をまとめます。
type Stores struct {
	Users    usecase.UserRepository
	Sessions usecase.SessionRepository
	// Checks は /healthz で使う依存先ごとの疎通確認です。
	Checks  map[string]healthhandler.Check
	closers []func(ctx context.Context) error
}

// Close は開いた接続をすべて閉じます。
func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewStores は設定に従ってバックエンドへ接続し、リポジトリを生成します。
//   - mongodb:// / mongodb+srv:// → MongoDB（users / sessions コレクション）
//   - postgres:// / mysql:// / sqlite:// → gorm
//
// REDIS_ADDRが設定されていればセッションはRedisへ保存します。
func NewStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	stores := &Stores{Checks: map[string]healthhandler.Check{}}

	var fallback usecase.SessionRepository
	if platformmongo.IsMongoURL(cfg.DatabaseURL) {
		client, err := platformmongo.NewMongoClient(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, client.Disconnect)
		stores.Checks["database"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }

		users, sessions, err := mongoRepositories(ctx, client.Database(cfg.DatabaseName), cfg.RunMigrations)
		if err != nil {
			_ = stores.Close(ctx)
			return nil, err
		}
		stores.Users, fallback = users, sessions
	} else {
		gdb, err := db.OpenDB(db.Config{
			URL:            cfg.DatabaseURL,
			ConnectTimeout: cfg.DBConnectTimeout,
			RunMigrations:  cfg.RunMigrations,
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("sql pool: %w", err)
		}
		stores.closers = append(stores.closers, func(context.Context) error { return sqlDB.Close() })
		stores.Checks["database"] = sqlDB.PingContext

		stores.Users, fallback = gormRepositories(gdb)
	}

	var rdb redis.Cmdable
	if cfg.RedisAddr != "" {
		client, err := platformredis.NewRedisClient(ctx, platformredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			_ = stores.Close(ctx)
			return nil, err
		}
		rdb = client
		stores.closers = append(stores.closers, func(context.Context) error { return client.Close() })
		stores.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	stores.Sessions = NewSessionRepository(rdb, fallback)
	return stores, nil
}

func gormRepositories(gdb *gorm.DB) (usecase.UserRepository, usecase.SessionRepository) {
	return authadapters.NewUserGorm(gdb), authadapters.NewSessionGorm(gdb)
}

func mongoRepositories(ctx context.Context, database *mongo.Database, ensureIndexes bool) (usecase.UserRepository, usecase.SessionRepository, error) {
	users := authadapters.NewUserMongo(database)
	sessions := authadapters.NewSessionMongo(database)
	if ensureIndexes {
		if err := users.EnsureIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure user indexes: %w", err)
		}
		if err := sessions.EnsureIndexes(ctx); err != nil {
			return nil, nil, fmt.Errorf("ensure session indexes: %w", err)
		}
	}
	return users, sessions, nil
}
