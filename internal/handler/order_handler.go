package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/csrf"

	"github.com/hitoshi/kanri/internal/middleware"
	"github.com/hitoshi/kanri/internal/model"
)

// OrderReader は注文ハンドラーが必要とする読み取りインターフェース。
// repository.OrderRepositoryがそのまま満たす。
type OrderReader interface {
	ListByCustomerID(ctx context.Context, customerID int64) ([]*model.Order, error)
	FindDetailByID(ctx context.Context, id int64) (*model.OrderDetail, error)
}

// OrderHandler は注文閲覧画面のHTTPハンドラー。注文は読み取り専用。
type OrderHandler struct {
	orders    OrderReader
	templates *TemplateCache
}

// NewOrderHandler はOrderHandlerを生成する。
func NewOrderHandler(orders OrderReader, templates *TemplateCache) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		templates: templates,
	}
}

// List はログイン中の顧客自身の注文一覧を新しい順に表示する。
// GET /orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, err := middleware.CustomerIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	orders, err := h.orders.ListByCustomerID(r.Context(), customerID)
	if err != nil {
		h.templates.RenderError(w, err)
		return
	}

	h.templates.Render(w, "orders.html", http.StatusOK, map[string]any{
		"Title":     "注文一覧",
		"LoggedIn":  true,
		"CsrfField": csrf.TemplateField(r),
		"Orders":    orders,
	})
}

// Detail は注文詳細を表示する。
// 他の顧客の注文は存在を知らせないため403を返す。
// GET /orders/{id}
func (h *OrderHandler) Detail(w http.ResponseWriter, r *http.Request) {
	customerID, err := middleware.CustomerIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id, err := parseID(r)
	if err != nil {
		h.templates.RenderError(w, model.NewOrderNotFoundError(0))
		return
	}

	detail, err := h.orders.FindDetailByID(r.Context(), id)
	if err != nil {
		h.templates.RenderError(w, err)
		return
	}
	if detail == nil {
		h.templates.RenderError(w, model.NewOrderNotFoundError(id))
		return
	}
	if detail.CustomerID != customerID {
		h.templates.RenderError(w, model.NewForbiddenError())
		return
	}

	h.templates.Render(w, "order_detail.html", http.StatusOK, map[string]any{
		"Title":     "注文詳細",
		"LoggedIn":  true,
		"CsrfField": csrf.TemplateField(r),
		"Detail":    detail,
		"Total":     detail.Total(),
	})
}
