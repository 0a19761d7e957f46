// Package auth はログイン認証とCSRF検証を提供します。
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/page-forge/internal/config"
)

const (
	SessionCookieName    = "pf_session"
	sessionKeyUser       = "auth_user"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	csrfHeader = "X-CSRF-Token"
)

var (
	maxSessionLifetime = 12 * time.Hour
	loginWindow        = 15 * time.Minute
	lockDuration       = 10 * time.Minute
	maxLoginAttempts   = 5
)

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func SessionMaxAgeSeconds() int {
	return int(maxSessionLifetime.Seconds())
}

// ContextUserKey は、ハンドラー間でログイン済みユーザー名を共有するためのキーです。
const ContextUserKey = "auth.user"

// LogoutHook はログアウトやセッション失効の直前に呼ばれます。
type LogoutHook func(c *gin.Context) error

// Manager はログイン状態の発行・検証と、ログアウト時の後始末をまとめます。
type Manager struct {
	cfg         *config.Config
	throttle    *loginThrottle
	idleTimeout time.Duration
	onLogout    []LogoutHook
	now         func() time.Time
}

// NewManager は認証マネージャーを作成します。
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		cfg:         cfg,
		throttle:    newLoginThrottle(loginWindow, lockDuration, maxLoginAttempts),
		idleTimeout: cfg.SessionIdleTTL(),
		now:         time.Now,
	}
}

// OnLogout はログアウト時に編集セッションなどを破棄するフックを登録します。
func (m *Manager) OnLogout(hook LogoutHook) {
	m.onLogout = append(m.onLogout, hook)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login は POST /api/auth/login のハンドラーです。成功時は CSRF トークンをヘッダーで返します。
func (m *Manager) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "INVALID_INPUT", "username と password を JSON で送ってください")
		return
	}
	if err := m.ensureCredentials(); err != nil {
		abort(c, http.StatusInternalServerError, "SERVER_MISCONFIGURATION", err.Error())
		return
	}

	ip := c.ClientIP()
	now := m.now()
	if wait := m.throttle.retryAfter(ip, now); wait > 0 {
		c.Header("Retry-After", strconv.FormatInt(int64(wait.Seconds()), 10))
		abort(c, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "一定時間後に再度お試しください")
		return
	}

	if !m.authenticate(req.Username, req.Password) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"code":              "INVALID_CREDENTIALS",
			"message":           "ユーザー名またはパスワードが正しくありません",
			"remainingAttempts": m.throttle.fail(ip, now),
		})
		return
	}
	m.throttle.reset(ip)

	token, err := m.issue(sessions.Default(c), now)
	if err != nil {
		abort(c, http.StatusInternalServerError, "SESSION_SAVE_FAILED", "ログイン状態の保存に失敗しました")
		return
	}

	c.Header(csrfHeader, token)
	c.Status(http.StatusNoContent)
}

// Logout は POST /api/auth/logout のハンドラーです。編集中の文書も破棄されます。
func (m *Manager) Logout(c *gin.Context) {
	if err := m.endSession(c); err != nil {
		abort(c, http.StatusInternalServerError, "SESSION_SAVE_FAILED", "セッションの削除に失敗しました")
		return
	}
	c.Status(http.StatusNoContent)
}

// RequireLogin はログイン済みでないリクエストを 401 で止めるミドルウェアです。
// 通過するたびに最終操作時刻を更新します。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		user, _ := session.Get(sessionKeyUser).(string)
		if user == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "ログインが必要です")
			return
		}

		now := m.now()
		if code, message := m.expiry(session, now); code != "" {
			_ = m.endSession(c)
			abort(c, http.StatusUnauthorized, code, message)
			return
		}

		session.Set(sessionKeyLastActive, now.Unix())
		_ = session.Save()
		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// VerifyCSRF は状態を変えるリクエストの X-CSRF-Token ヘッダーを検証するミドルウェアです。
func (m *Manager) VerifyCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		expected, _ := sessions.Default(c).Get(sessionKeyCSRF).(string)
		switch {
		case expected == "":
			abort(c, http.StatusForbidden, "CSRF_MISSING", "CSRF トークンが設定されていません")
		case subtle.ConstantTimeCompare([]byte(expected), []byte(c.GetHeader(csrfHeader))) != 1:
			abort(c, http.StatusForbidden, "CSRF_INVALID", "CSRF トークンが一致しません")
		default:
			c.Next()
		}
	}
}

func (m *Manager) authenticate(username, password string) bool {
	if subtle.ConstantTimeCompare([]byte(username), []byte(m.cfg.AppUsername)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(m.cfg.AppPasswordHash), []byte(password)) == nil
}

// issue はログイン状態を書き込み、新しい CSRF トークンを返す
func (m *Manager) issue(session sessions.Session, now time.Time) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	session.Set(sessionKeyUser, m.cfg.AppUsername)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)
	if err := session.Save(); err != nil {
		return "", err
	}
	return token, nil
}

// expiry は期限切れなら応答用のコードとメッセージを返す
func (m *Manager) expiry(session sessions.Session, now time.Time) (string, string) {
	issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
	if issuedAt.IsZero() || now.Sub(issuedAt) > maxSessionLifetime {
		return "SESSION_EXPIRED", "セッションの有効期限が切れました"
	}
	lastActive := readUnix(session.Get(sessionKeyLastActive))
	if lastActive.IsZero() || now.Sub(lastActive) > m.idleTimeout {
		return "SESSION_IDLE_TIMEOUT", "しばらく操作がなかったため再ログインしてください"
	}
	return "", ""
}

// endSession はフックを実行してからクッキーセッションを空にする
func (m *Manager) endSession(c *gin.Context) error {
	for _, hook := range m.onLogout {
		if err := hook(c); err != nil {
			log.Printf("logout hook failed: %v", err)
		}
	}
	session := sessions.Default(c)
	session.Clear()
	return session.Save()
}

func (m *Manager) ensureCredentials() error {
	switch {
	case m.cfg.AppUsername == "":
		return errors.New("APP_USERNAME が設定されていません")
	case m.cfg.AppPasswordHash == "":
		return errors.New("APP_PASSWORD_HASH が設定されていません")
	case m.cfg.SessionSecret == "":
		return errors.New("SESSION_SECRET が設定されていません")
	}
	return nil
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"code":    code,
		"message": message,
	})
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
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

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
