// Package web はルーティングとリクエストハンドラーを提供します。
package web

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	ginsessions "github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-swap/internal/auth"
	"github.com/yourusername/book-swap/internal/books"
	"github.com/yourusername/book-swap/internal/config"
	"github.com/yourusername/book-swap/internal/store"
)

// NewRouter はミドルウェアと全ルートを配線したGinエンジンを返します。
func NewRouter(cfg *config.Config, sessionStore ginsessions.Store, st *store.Store, booksClient *books.Client) *gin.Engine {
	// Ginルーターの初期化（デフォルトミドルウェア: Logger, Recovery）
	router := gin.Default()

	// 全レスポンスにキャッシュ無効化ヘッダーを付与する。
	// 途中でリクエストを打ち切るミドルウェアより先に積む
	router.Use(NoCache())

	// セッションミドルウェア（クッキー属性はここで固定する）
	sessionStore.Options(ginsessions.Options{
		Path:     "/",
		MaxAge:   auth.SessionMaxAgeSeconds(),
		HttpOnly: true,
		Secure:   cfg.GinMode == gin.ReleaseMode,
		SameSite: http.SameSiteStrictMode,
	})
	router.Use(ginsessions.Sessions(auth.SessionCookieName, sessionStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// HTMLテンプレートの読み込み
	router.LoadHTMLGlob(cfg.TemplateGlob)

	manager := auth.NewManager(st)
	h := &Handler{
		auth:  manager,
		store: st,
		books: booksClient,
	}

	setupRoutes(router, manager, h)
	return router
}

func setupRoutes(router *gin.Engine, manager *auth.Manager, h *Handler) {
	// 誰でも叩けるヘルスチェック
	router.GET("/health", h.Health)

	// 認証不要のルート
	router.GET("/", h.Home)
	router.GET("/login", h.LoginForm)
	router.POST("/login", h.Login)
	router.GET("/logout", h.Logout)
	router.GET("/register", h.RegisterForm)
	router.POST("/register", h.Register)

	// ログイン必須のルート
	protected := router.Group("")
	protected.Use(manager.RequireLogin())
	{
		protected.GET("/search", h.SearchPage)
		protected.POST("/search", h.AddToLibrary)
		protected.GET("/api/books", h.SearchBooks)
		protected.GET("/sell", h.Sell)
		protected.GET("/buy", h.Buy)
		protected.GET("/library", h.Library)
	}
}
