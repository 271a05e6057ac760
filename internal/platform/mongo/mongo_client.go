// Package mongo はユーザーストア用のMongoDBクライアントを生成します。
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// pingTimeout は起動時の接続確認に使うタイムアウトです。
const pingTimeout = 10 * time.Second

// IsMongoURL はURLがMongoDBの接続文字列かどうかを判定します。
func IsMongoURL(rawURL string) bool {
	return strings.HasPrefix(rawURL, "mongodb://") || strings.HasPrefix(rawURL, "mongodb+srv://")
}

// NewMongoClient は接続し、プライマリへのPINGで疎通を確認します。
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	if !IsMongoURL(uri) {
		return nil, fmt.Errorf("not a mongodb url")
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(pingTimeout))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	// 接続確認
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		slog.Error("MongoDB connection failed", "error", err)
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("MongoDB connection successful")
	return client, nil
}
