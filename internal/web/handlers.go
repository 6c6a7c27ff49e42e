package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/book-swap/internal/auth"
	"github.com/yourusername/book-swap/internal/books"
	"github.com/yourusername/book-swap/internal/store"
)

// 入力が欠けていた場合の既定値。検索結果の正規化側と同じく、
// 欠損は弾かずに埋め草で補う方針です。
const (
	defaultTitle  = "No title provided"
	defaultAuthor = "No author provided"
	defaultImage  = "No image provided"
)

// Handler は全ルートのハンドラーをまとめた構造体です。
type Handler struct {
	auth  *auth.Manager
	store *store.Store
	books *books.Client
}

// apology は利用者向けのエラーページをステータスコード付きで返します。
func (h *Handler) apology(c *gin.Context, status int, message string) {
	c.HTML(status, "apology.html", gin.H{
		"Status":  status,
		"Message": message,
	})
}

// Health は GET /health のハンドラーです。
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "book-swap",
		"version": "0.1.0",
	})
}

// Home は GET / のハンドラーです。未ログインならログインページへ誘導します。
func (h *Handler) Home(c *gin.Context) {
	if _, ok := auth.CurrentUserID(c); !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	c.HTML(http.StatusOK, "index.html", nil)
}

// LoginForm は GET /login のハンドラーです。ログイン済みならトップへ戻します。
func (h *Handler) LoginForm(c *gin.Context) {
	if _, ok := auth.CurrentUserID(c); ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.HTML(http.StatusOK, "login.html", nil)
}

// Login は POST /login のハンドラーです。
func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	if username == "" {
		h.apology(c, http.StatusBadRequest, "must provide username")
		return
	}
	password := c.PostForm("password")
	if password == "" {
		h.apology(c, http.StatusBadRequest, "must provide password")
		return
	}

	userID, err := h.auth.Authenticate(c.Request.Context(), c.ClientIP(), username, password)
	if err != nil {
		var locked *auth.TooManyAttemptsError
		switch {
		case errors.As(err, &locked):
			// Retry-After は秒数で返す
			c.Header("Retry-After", strconv.FormatInt(int64(locked.RetryAfter.Seconds()), 10))
			h.apology(c, http.StatusTooManyRequests, "too many failed attempts, try again later")
		case errors.Is(err, auth.ErrInvalidCredentials):
			h.apology(c, http.StatusBadRequest, "invalid username and/or password")
		default:
			// 永続化層のエラーは記録し、利用者にはそのまま見せない
			log.Printf("authenticate failed: %v", err)
			h.apology(c, http.StatusInternalServerError, "something went wrong")
		}
		return
	}

	if err := auth.LoginSession(c, userID); err != nil {
		log.Printf("save session failed: %v", err)
		h.apology(c, http.StatusInternalServerError, "failed to save session")
		return
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// Logout は GET /logout のハンドラーです。セッションを破棄してログインページへ戻します。
func (h *Handler) Logout(c *gin.Context) {
	if err := auth.LogoutSession(c); err != nil {
		log.Printf("clear session failed: %v", err)
		h.apology(c, http.StatusInternalServerError, "failed to clear session")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

// RegisterForm は GET /register のハンドラーです。
func (h *Handler) RegisterForm(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", nil)
}

// Register は POST /register のハンドラーです。
func (h *Handler) Register(c *gin.Context) {
	username := c.PostForm("username")
	if username == "" {
		h.apology(c, http.StatusBadRequest, "must provide username")
		return
	}
	password := c.PostForm("password")
	if password == "" {
		h.apology(c, http.StatusBadRequest, "must provide password")
		return
	}
	confirmation := c.PostForm("confirmation")
	if confirmation == "" {
		h.apology(c, http.StatusBadRequest, "must confirm password")
		return
	}
	if password != confirmation {
		h.apology(c, http.StatusBadRequest, "passwords do not match")
		return
	}

	if _, err := h.auth.Register(c.Request.Context(), username, password); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			h.apology(c, http.StatusBadRequest, "username already exists")
			return
		}
		log.Printf("create user failed: %v", err)
		h.apology(c, http.StatusInternalServerError, "something went wrong")
		return
	}

	c.Redirect(http.StatusSeeOther, "/login")
}

// SearchPage は GET /search のハンドラーです。検索ページを表示します。
func (h *Handler) SearchPage(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

type addBookRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Image  string `json:"image"`
}

// AddToLibrary は POST /search のハンドラーです。
// 検索結果から選ばれた1冊をJSONで受け取り、蔵書に追加します。
func (h *Handler) AddToLibrary(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	var req addBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.apology(c, http.StatusBadRequest, "invalid data")
		return
	}

	if req.Title == "" {
		req.Title = defaultTitle
	}
	if req.Author == "" {
		req.Author = defaultAuthor
	}
	if req.Image == "" {
		req.Image = defaultImage
	}

	// ここまでで全フィールドは埋まっているので、失敗は永続化層のエラーだけ
	if _, err := h.store.AddBook(c.Request.Context(), userID, req.Title, req.Author, req.Image); err != nil {
		log.Printf("add book failed: %v", err)
		h.apology(c, http.StatusInternalServerError, "something went wrong")
		return
	}

	c.Redirect(http.StatusSeeOther, "/library")
}

// SearchBooks は GET /api/books のハンドラーです。
// 外部APIの検索結果を正規化してJSONで返します。
func (h *Handler) SearchBooks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_INPUT",
			"message": "query parameter q is required",
		})
		return
	}

	results, err := h.books.Search(c.Request.Context(), query)
	if err != nil {
		log.Printf("books api search failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{
			"code":    "BOOKS_API_FAILED",
			"message": "failed to search books",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": results})
}

// Sell は GET /sell のハンドラーです。出品候補として自分の蔵書を表示します。
func (h *Handler) Sell(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	list, err := h.store.ListBooks(c.Request.Context(), userID)
	if err != nil {
		log.Printf("list books failed: %v", err)
		h.apology(c, http.StatusInternalServerError, "something went wrong")
		return
	}

	c.HTML(http.StatusOK, "sell.html", gin.H{"Books": list})
}

// Buy は GET /buy のハンドラーです。
func (h *Handler) Buy(c *gin.Context) {
	c.HTML(http.StatusOK, "buy.html", nil)
}

// Library は GET /library のハンドラーです。自分の蔵書一覧を表示します。
func (h *Handler) Library(c *gin.Context) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	list, err := h.store.ListBooks(c.Request.Context(), userID)
	if err != nil {
		log.Printf("list books failed: %v", err)
		h.apology(c, http.StatusInternalServerError, "something went wrong")
		return
	}

	c.HTML(http.StatusOK, "library.html", gin.H{"Rows": list})
}
