package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/kanri/internal/model"
)

// ProductReader は商品ハンドラーが必要とする読み取りインターフェース。
// repository.ProductRepositoryがそのまま満たす。
type ProductReader interface {
	FindByID(ctx context.Context, id int64) (*model.Product, error)
}

// ProductHandler は商品詳細画面のHTTPハンドラー。認証不要の公開ページ。
type ProductHandler struct {
	products  ProductReader
	templates *TemplateCache
}

// NewProductHandler はProductHandlerを生成する。
func NewProductHandler(products ProductReader, templates *TemplateCache) *ProductHandler {
	return &ProductHandler{
		products:  products,
		templates: templates,
	}
}

// Detail は商品詳細を表示する。
// GET /products/{id}
func (h *ProductHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.templates.RenderError(w, model.NewProductNotFoundError(0))
		return
	}

	product, err := h.products.FindByID(r.Context(), id)
	if err != nil {
		h.templates.RenderError(w, err)
		return
	}
	if product == nil {
		h.templates.RenderError(w, model.NewProductNotFoundError(id))
		return
	}

	h.templates.Render(w, "product_detail.html", http.StatusOK, map[string]any{
		"Title":   product.Name,
		"Product": product,
	})
}
