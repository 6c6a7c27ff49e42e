// Package auth は資格情報の検証とセッションのライフサイクルを提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/book-swap/internal/store"
)

const (
	SessionCookieName    = "bs_session"
	sessionKeyUserID     = "auth_user_id"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
)

var (
	maxSessionLifetime = 12 * time.Hour
	idleTimeout        = 30 * time.Minute
	loginWindow        = 15 * time.Minute
	lockDuration       = 10 * time.Minute
	maxLoginAttempts   = 5
)

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// ErrInvalidCredentials はユーザー名またはパスワードが正しくないことを示します。
// 該当ユーザーが0件の場合も、一意性が崩れて複数件ある場合も、同じ失敗として扱います。
var ErrInvalidCredentials = errors.New("invalid username or password")

// TooManyAttemptsError はログイン試行がロックされていることを示します。
type TooManyAttemptsError struct {
	RetryAfter time.Duration
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many login attempts, retry after %s", e.RetryAfter)
}

// UserStore は認証が必要とするユーザー永続化の操作です。
type UserStore interface {
	CreateUser(ctx context.Context, username, hash string) (int64, error)
	UsersByUsername(ctx context.Context, username string) ([]store.User, error)
}

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	users    UserStore
	lock     sync.Mutex
	attempts map[string]*attemptState
}

// NewManager は認証マネージャーを作成します。
func NewManager(users UserStore) *Manager {
	return &Manager{
		users:    users,
		attempts: make(map[string]*attemptState),
	}
}

// Register はパスワードをbcryptでハッシュ化してユーザーを作成し、新しいIDを返します。
// ユーザー名が重複している場合は store.ErrUsernameTaken をそのまま返します。
func (m *Manager) Register(ctx context.Context, username, password string) (int64, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return m.users.CreateUser(ctx, username, string(hash))
}

// Authenticate は資格情報を検証し、成功時にユーザーIDを返します。
// ip ごとの失敗回数を数え、上限を超えると一定時間ロックします。
// 該当ユーザーがちょうど1件でない場合は必ず失敗にします。
func (m *Manager) Authenticate(ctx context.Context, ip, username, password string) (int64, error) {
	if retryAfter := m.checkLock(ip); retryAfter > 0 {
		return 0, &TooManyAttemptsError{RetryAfter: retryAfter}
	}

	users, err := m.users.UsersByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("find user: %w", err)
	}

	if len(users) != 1 || !verifyPassword(users[0].Hash, password) {
		m.recordFailure(ip)
		return 0, ErrInvalidCredentials
	}

	m.resetAttempts(ip)
	return users[0].ID, nil
}

func verifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// LoginSession はセッションをユーザーIDに紐付けます。
func LoginSession(c *gin.Context, userID int64) error {
	session := sessions.Default(c)
	now := time.Now()
	session.Set(sessionKeyUserID, userID)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	return session.Save()
}

// LogoutSession はセッション状態をすべて破棄します。
func LogoutSession(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}

// CurrentUserID はセッションに紐付いたユーザーIDを返します。
// 未ログインの場合は ok=false です。
func CurrentUserID(c *gin.Context) (int64, bool) {
	session := sessions.Default(c)
	userID, ok := session.Get(sessionKeyUserID).(int64)
	if !ok || userID == 0 {
		return 0, false
	}
	return userID, true
}

// RequireLogin はセッションを検証するミドルウェアを返します。
// 未ログイン・期限切れの場合はログインページへリダイレクトします。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionKeyUserID).(int64)
		if !ok || userID == 0 {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		now := time.Now()
		issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
		lastActive := readUnix(session.Get(sessionKeyLastActive))

		if issuedAt.IsZero() || now.Sub(issuedAt) > maxSessionLifetime {
			session.Clear()
			_ = session.Save()
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		if lastActive.IsZero() || now.Sub(lastActive) > idleTimeout {
			session.Clear()
			_ = session.Save()
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}

		session.Set(sessionKeyLastActive, now.Unix())
		_ = session.Save()
		c.Next()
	}
}

func (m *Manager) checkLock(ip string) time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()

	state, ok := m.attempts[ip]
	if !ok {
		return 0
	}
	now := time.Now()
	if now.After(state.lockedUntil) {
		return 0
	}
	return time.Until(state.lockedUntil)
}

func (m *Manager) recordFailure(ip string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := time.Now()
	state, ok := m.attempts[ip]
	if !ok || now.Sub(state.firstAttempt) > loginWindow {
		state = &attemptState{firstAttempt: now}
		m.attempts[ip] = state
	}

	state.count++
	if state.count >= maxLoginAttempts {
		state.lockedUntil = now.Add(lockDuration)
		state.count = maxLoginAttempts
	}
}

func (m *Manager) resetAttempts(ip string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.attempts, ip)
}

func readUnix(v interface{}) time.Time {
	switch t := v.(type) {
	case int64:
		return time.Unix(t, 0)
	case int:
		return time.Unix(int64(t), 0)
	case float64:
		return time.Unix(int64(t), 0)
	default:
		return time.Time{}
	}
}
