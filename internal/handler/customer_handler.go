package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"

	"github.com/hitoshi/kanri/internal/customer"
	"github.com/hitoshi/kanri/internal/model"
)

// CustomerServiceInterface は顧客ハンドラーが必要とするサービスインターフェース。
type CustomerServiceInterface interface {
	List(ctx context.Context, params customer.ListParams) (*customer.Page, error)
	Get(ctx context.Context, id int64) (*model.Customer, error)
	Create(ctx context.Context, input customer.Input) (*model.Customer, error)
	Update(ctx context.Context, id int64, input customer.Input) (*model.Customer, error)
	Delete(ctx context.Context, id int64) error
}

// CustomerMetrics は顧客操作の記録に必要なインターフェース。
type CustomerMetrics interface {
	RecordCustomerMutation(operation string)
	RecordCustomerSearch()
}

// CustomerHandler は顧客CRUD画面のHTTPハンドラー。
type CustomerHandler struct {
	service   CustomerServiceInterface
	templates *TemplateCache
	metrics   CustomerMetrics
}

// NewCustomerHandler はCustomerHandlerを生成する。metricsはnilでもよい。
func NewCustomerHandler(service CustomerServiceInterface, templates *TemplateCache, metrics CustomerMetrics) *CustomerHandler {
	return &CustomerHandler{
		service:   service,
		templates: templates,
		metrics:   metrics,
	}
}

// List は顧客一覧画面を表示する。
// クエリパラメータq/sort/direction/pageは寛容に解釈され、
// 不正値はエラーにせずデフォルトに正規化される。
// GET /customers?q=&sort=&direction=&page=
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// 数値でないページ番号は1として扱う。
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil {
		page = 1
	}

	params := customer.ListParams{
		Query:         q.Get("q"),
		SortKey:       q.Get("sort"),
		SortDirection: q.Get("direction"),
		Page:          page,
	}

	result, err := h.service.List(r.Context(), params)
	if err != nil {
		h.templates.RenderError(w, err)
		return
	}

	if h.metrics != nil && params.Query != "" {
		h.metrics.RecordCustomerSearch()
	}

	h.templates.Render(w, "customers.html", http.StatusOK, map[string]any{
		"Title":     "顧客一覧",
		"LoggedIn":  true,
		"CsrfField": csrf.TemplateField(r),
		"Page":      result,
	})
}

// NewForm は新規登録フォームを表示する。
// GET /customers/new
func (h *CustomerHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.templates.Render(w, "customer_form.html", http.StatusOK, map[string]any{
		"Title":     "顧客登録",
		"LoggedIn":  true,
		"CsrfField": csrf.TemplateField(r),
		"Action":    "/customers",
		"IsNew":     true,
		"Name":      "",
		"Age":       "",
		"Email":     "",
	})
}

// Create は顧客を新規作成する。
// 検証エラー・email重複は400でフォームを再表示し、入力値を保持する。
// POST /customers
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	input := customer.Input{
		Name:     r.FormValue("name"),
		Age:      r.FormValue("age"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}

	if _, err := h.service.Create(r.Context(), input); err != nil {
		if isFormError(err) {
			h.renderForm(w, r, "顧客登録", "/customers", true, input, err)
			return
		}
		h.templates.RenderError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCustomerMutation("create")
	}

	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

// EditForm は編集フォームを表示する。
// GET /customers/{id}/edit
func (h *CustomerHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.templates.RenderError(w, model.NewCustomerNotFoundError(0))
		return
	}

	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.templates.RenderError(w, err)
		return
	}

	h.templates.Render(w, "customer_form.html", http.StatusOK, map[string]any{
		"Title":     "顧客編集",
		"LoggedIn":  true,
		"CsrfField": csrf.TemplateField(r),
		"Action":    "/customers/" + strconv.FormatInt(c.ID, 10),
		"Name":      c.Name,
		"Age":       strconv.Itoa(c.Age),
		"Email":     c.Email,
	})
}

// Update は顧客を更新する。
// POST /customers/{id}
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.templates.RenderError(w, model.NewCustomerNotFoundError(0))
		return
	}

	input := customer.Input{
		Name:  r.FormValue("name"),
		Age:   r.FormValue("age"),
		Email: r.FormValue("email"),
	}

	if _, err := h.service.Update(r.Context(), id, input); err != nil {
		if isFormError(err) {
			h.renderForm(w, r, "顧客編集", "/customers/"+strconv.FormatInt(id, 10), false, input, err)
			return
		}
		h.templates.RenderError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCustomerMutation("update")
	}

	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

// Delete は顧客を削除する。保護レコードは403になる。
// POST /customers/{id}/delete
func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.templates.RenderError(w, model.NewCustomerNotFoundError(0))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.templates.RenderError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCustomerMutation("delete")
	}

	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

// renderForm は検証失敗時にフォームを入力値つきで再表示する。
func (h *CustomerHandler) renderForm(w http.ResponseWriter, r *http.Request, title, action string, isNew bool, input customer.Input, err error) {
	var apiErr *model.APIError
	errors.As(err, &apiErr)

	h.templates.Render(w, "customer_form.html", http.StatusBadRequest, map[string]any{
		"Title":     title,
		"LoggedIn":  true,
		"CsrfField": csrf.TemplateField(r),
		"Action":    action,
		"IsNew":     isNew,
		"Name":      input.Name,
		"Age":       input.Age,
		"Email":     input.Email,
		"Error":     apiErr.Message,
	})
}

// isFormError はフォーム再表示で扱うエラーかどうかを判定する。
func isFormError(err error) bool {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == model.ErrCodeValidation || apiErr.Code == model.ErrCodeDuplicateEmail
}

// parseID はURLパラメータ{id}をint64として取り出す。
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
