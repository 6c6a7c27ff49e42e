package web

import "github.com/gin-gonic/gin"

// NoCache はすべてのレスポンスにキャッシュ無効化ヘッダーを付与するミドルウェアです。
// 成功・失敗を問わず、ログイン後のページがブラウザに残らないようにします。
func NoCache() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
		c.Header("Pragma", "no-cache")
		c.Header("Expires", "0")
		c.Next()
	}
}
