package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kanri/internal/metrics"
	"github.com/hitoshi/kanri/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder middleware.SessionFinder
	RateLimiter   *middleware.RateLimiter
	Logger        *slog.Logger

	// サービス
	AuthService     AuthServiceInterface
	AuthConfig      AuthHandlerConfig
	CustomerService CustomerServiceInterface
	Orders          OrderReader
	Products        ProductReader

	// 画面
	Templates *TemplateCache

	// 観測
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer

	// CSRF
	CSRFKey      []byte
	CookieSecure bool

	// ヘルスチェック用DB。nilの場合はDB確認をスキップする。
	DB *sql.DB
}

// NewRouter は全ルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → Metrics → CSRF → RateLimit(General)
//
// 認証が必要な画面にはさらにSessionMiddlewareがかかる。
// POST /loginには専用の厳しいレート制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Collector != nil {
		r.Use(metrics.NewMiddleware(deps.Collector))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Templates, deps.AuthConfig, deps.Collector)
	customerHandler := NewCustomerHandler(deps.CustomerService, deps.Templates, deps.Collector)
	orderHandler := NewOrderHandler(deps.Orders, deps.Templates)
	productHandler := NewProductHandler(deps.Products, deps.Templates)

	// --- 観測エンドポイント（CSRF・レート制限の外） ---

	r.Get("/health", newHealthHandler(deps.DB))
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- HTML画面（CSRF保護下） ---

	r.Group(func(r chi.Router) {
		r.Use(csrf.Protect(deps.CSRFKey,
			csrf.Secure(deps.CookieSecure),
			csrf.Path("/"),
		))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 認証不要のルート
		r.Get("/login", authHandler.LoginForm)
		r.With(deps.RateLimiter.LoginMiddleware()).Post("/login", authHandler.Login)
		r.Get("/products/{id}", productHandler.Detail)

		// 認証が必要なルート
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))

			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/customers", http.StatusSeeOther)
			})

			r.Route("/customers", func(r chi.Router) {
				r.Get("/", customerHandler.List)
				r.Post("/", customerHandler.Create)
				r.Get("/new", customerHandler.NewForm)

				r.Route("/{id}", func(r chi.Router) {
					r.Post("/", customerHandler.Update)
					r.Get("/edit", customerHandler.EditForm)
					r.Post("/delete", customerHandler.Delete)
				})
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", orderHandler.List)
				r.Get("/{id}", orderHandler.Detail)
			})

			r.Post("/logout", authHandler.Logout)
		})
	})

	return r
}

// newHealthHandler はヘルスチェックエンドポイントを返す。
// DBが設定されている場合は接続確認を含める。
func newHealthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				status = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
