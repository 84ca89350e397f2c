// Package handler はHTTPハンドラーとHTML画面の描画を提供する。
package handler

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/hitoshi/kanri/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateCache は起動時にパース済みのテンプレートを保持する。
// 全画面がlayout.htmlを共有し、各ページはcontentブロックを定義する。
type TemplateCache struct {
	cache map[string]*template.Template
}

// NewTemplateCache は埋め込みテンプレートをすべてパースしてキャッシュを構築する。
// パースエラーは起動時に検出される。
func NewTemplateCache() (*TemplateCache, error) {
	funcs := template.FuncMap{
		"prevPage": func(p int) int { return p - 1 },
		"nextPage": func(p int) int { return p + 1 },
		"money":    func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}

	pages, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob templates: %w", err)
	}

	tc := &TemplateCache{cache: make(map[string]*template.Template)}
	for _, page := range pages {
		name := filepath.Base(page)
		if name == "layout.html" {
			continue
		}
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		tc.cache[name] = tmpl
	}

	return tc, nil
}

// Render は指定テンプレートを描画する。
// 描画エラーで中途半端なHTMLを返さないよう、一旦バッファに書き出す。
func (tc *TemplateCache) Render(w http.ResponseWriter, name string, status int, data map[string]any) {
	tmpl, ok := tc.cache[name]
	if !ok {
		slog.Error("template not found", slog.String("name", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.Error("failed to render template",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RenderError はエラーをHTTPステータスに対応づけてエラーページを描画する。
// APIError以外のエラーは詳細を漏らさず500として扱う。
func (tc *TemplateCache) RenderError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "サーバーエラーが発生しました。"
	action := "時間をおいて再度お試しください。"

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status = statusForError(apiErr)
		message = apiErr.Message
		action = apiErr.Action
	} else {
		slog.Error("unhandled error", slog.String("error", err.Error()))
	}

	tc.Render(w, "error.html", status, map[string]any{
		"Title":   "エラー",
		"Status":  status,
		"Message": message,
		"Action":  action,
	})
}

// statusForError はエラーコードをHTTPステータスコードに対応づける。
func statusForError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeDuplicateEmail:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeProtectedRecord, model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeCustomerNotFound, model.ErrCodeOrderNotFound, model.ErrCodeProductNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
