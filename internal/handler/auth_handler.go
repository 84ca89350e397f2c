package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/hitoshi/kanri/internal/middleware"
	"github.com/hitoshi/kanri/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentCustomer(ctx context.Context, sessionID string) (*model.Customer, error)
}

// LoginMetrics はログイン結果の記録に必要なインターフェース。
type LoginMetrics interface {
	RecordLoginSuccess()
	RecordLoginFailure()
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	templates *TemplateCache
	config    AuthHandlerConfig
	metrics   LoginMetrics
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnilでもよい。
func NewAuthHandler(service AuthServiceInterface, templates *TemplateCache, config AuthHandlerConfig, metrics LoginMetrics) *AuthHandler {
	return &AuthHandler{
		service:   service,
		templates: templates,
		config:    config,
		metrics:   metrics,
	}
}

// LoginForm はログイン画面を表示する。
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.templates.Render(w, "login.html", http.StatusOK, map[string]any{
		"Title":     "ログイン",
		"CsrfField": csrf.TemplateField(r),
		"Email":     "",
	})
}

// Login はメールアドレスとパスワードを検証してセッションを発行する。
// 成功時はセッションCookieを設定して顧客一覧へ303リダイレクト、
// 失敗時は401でログイン画面を再表示する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	session, err := h.service.Login(r.Context(), email, password)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordLoginFailure()
		}

		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeInvalidCredentials {
			h.templates.Render(w, "login.html", http.StatusUnauthorized, map[string]any{
				"Title":     "ログイン",
				"CsrfField": csrf.TemplateField(r),
				"Email":     email,
				"Error":     apiErr.Message,
			})
			return
		}

		slog.Error("login failed", slog.String("error", err.Error()))
		h.templates.RenderError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordLoginSuccess()
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

// Logout はセッションを破棄してログイン画面へ戻す。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
