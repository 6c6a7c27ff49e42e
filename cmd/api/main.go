// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"crypto/rand"
	"encoding/hex"
	"log"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/book-swap/internal/books"
	"github.com/yourusername/book-swap/internal/config"
	"github.com/yourusername/book-swap/internal/session"
	"github.com/yourusername/book-swap/internal/store"
	"github.com/yourusername/book-swap/internal/web"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	// データベースを開く
	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer st.Close()

	// セッションストアの設定（クッキー署名鍵は必須）
	secret := cfg.SessionSecret
	if secret == "" {
		// 開発用の使い捨て鍵。再起動で全セッションが無効になる
		secret = generateDevSecret()
		log.Printf("SESSION_SECRET not set, using a generated development key")
	}
	sessionStore := session.NewStore(newSessionKV(cfg), []byte(secret))

	// 書籍メタデータAPIクライアント
	booksClient := books.NewClient(cfg.BooksAPIBaseURL)

	// ルーティングの設定
	router := web.NewRouter(cfg, sessionStore, st, booksClient)

	// サーバーの起動
	addr := ":" + cfg.Port
	log.Printf("Starting API server on %s (mode: %s)", addr, cfg.GinMode)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newSessionKV はセッションの保存先を選びます。
// SESSION_REDIS_URL が設定されていればRedis、なければインメモリです。
func newSessionKV(cfg *config.Config) session.KV {
	if cfg.SessionRedisURL == "" {
		return session.NewMemoryKV()
	}

	opt, err := redis.ParseURL(cfg.SessionRedisURL)
	if err != nil {
		log.Fatalf("Failed to parse SESSION_REDIS_URL: %v", err)
	}
	return session.NewRedisKV(redis.NewClient(opt))
}

func generateDevSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("Failed to generate session secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
