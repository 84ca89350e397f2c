// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/kanri/internal/model"
)

// SessionCookieName はセッションIDを保持するCookie名。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// customerIDContextKey はリクエストコンテキストに認証済み顧客IDを格納するためのキー。
var customerIDContextKey = contextKey("customer_id")

// SessionFinder はセッションの検索に必要なインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionFinder interface {
	FindByID(ctx context.Context, id string) (*model.Session, error)
}

// NewSessionMiddleware はHTTP Only Cookieからセッションを読み取り、
// 有効性を検証するミドルウェアを返す。
// 認証済み顧客IDをリクエストコンテキストに注入する。
// 未認証リクエストはログイン画面へ303でリダイレクトする。
func NewSessionMiddleware(sessionFinder SessionFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			session, err := sessionFinder.FindByID(r.Context(), cookie.Value)
			if err != nil {
				slog.Error("failed to find session",
					slog.String("error", err.Error()),
				)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if session == nil {
				// 無効・期限切れ。Cookieを消してログインへ。
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookieName,
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
				})
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), customerIDContextKey, session.CustomerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CustomerIDFromContext はリクエストコンテキストから認証済み顧客IDを取得する。
// セッションミドルウェアを通過したリクエストでのみ有効。
func CustomerIDFromContext(ctx context.Context) (int64, error) {
	customerID, ok := ctx.Value(customerIDContextKey).(int64)
	if !ok || customerID == 0 {
		return 0, fmt.Errorf("customer ID not found in context")
	}
	return customerID, nil
}

// ContextWithCustomerID はコンテキストに顧客IDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithCustomerID(ctx context.Context, customerID int64) context.Context {
	return context.WithValue(ctx, customerIDContextKey, customerID)
}
