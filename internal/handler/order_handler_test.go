package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/kanri/internal/middleware"
	"github.com/hitoshi/kanri/internal/model"
)

type mockOrderReader struct {
	listByCustomerIDFunc func(ctx context.Context, customerID int64) ([]*model.Order, error)
	findDetailByIDFunc   func(ctx context.Context, id int64) (*model.OrderDetail, error)
}

func (m *mockOrderReader) ListByCustomerID(ctx context.Context, customerID int64) ([]*model.Order, error) {
	return m.listByCustomerIDFunc(ctx, customerID)
}

func (m *mockOrderReader) FindDetailByID(ctx context.Context, id int64) (*model.OrderDetail, error) {
	return m.findDetailByIDFunc(ctx, id)
}

func newOrderRouter(h *OrderHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/orders", h.List)
	r.Get("/orders/{id}", h.Detail)
	return r
}

func authedRequest(method, path string, customerID int64) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(middleware.ContextWithCustomerID(req.Context(), customerID))
}

func TestOrderList(t *testing.T) {
	reader := &mockOrderReader{
		listByCustomerIDFunc: func(ctx context.Context, customerID int64) ([]*model.Order, error) {
			if customerID != 1 {
				t.Errorf("customerID = %d, want 1", customerID)
			}
			return []*model.Order{
				{ID: 10, CustomerID: 1, Status: "配達済み", OrderedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
			}, nil
		},
	}
	router := newOrderRouter(NewOrderHandler(reader, newTestTemplates(t)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders", 1))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "配達済み") {
		t.Error("body does not contain order status")
	}
}

func TestOrderDetail_OwnOrder(t *testing.T) {
	reader := &mockOrderReader{
		findDetailByIDFunc: func(ctx context.Context, id int64) (*model.OrderDetail, error) {
			return &model.OrderDetail{
				Order: model.Order{ID: 10, CustomerID: 1, Status: "配達済み", OrderedAt: time.Now()},
				Items: []model.OrderLineItem{
					{ProductID: 1, ProductName: "27インチモニター", Quantity: 1, UnitPrice: 999.99},
					{ProductID: 2, ProductName: "メカニカルキーボード", Quantity: 2, UnitPrice: 250.00},
				},
			}, nil
		},
	}
	router := newOrderRouter(NewOrderHandler(reader, newTestTemplates(t)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders/10", 1))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "27インチモニター") {
		t.Error("body does not contain line item product name")
	}
	// 明細の単価は注文時点の値で表示される。
	if !strings.Contains(body, "999.99") {
		t.Error("body does not contain frozen unit price")
	}
	// 合計 999.99 + 2*250.00
	if !strings.Contains(body, "1499.99") {
		t.Error("body does not contain order total")
	}
}

func TestOrderDetail_OtherCustomersOrderIsForbidden(t *testing.T) {
	reader := &mockOrderReader{
		findDetailByIDFunc: func(ctx context.Context, id int64) (*model.OrderDetail, error) {
			return &model.OrderDetail{
				Order: model.Order{ID: 10, CustomerID: 2, Status: "保留中", OrderedAt: time.Now()},
			}, nil
		},
	}
	router := newOrderRouter(NewOrderHandler(reader, newTestTemplates(t)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders/10", 1))

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestOrderDetail_NotFound(t *testing.T) {
	reader := &mockOrderReader{
		findDetailByIDFunc: func(ctx context.Context, id int64) (*model.OrderDetail, error) {
			return nil, nil
		},
	}
	router := newOrderRouter(NewOrderHandler(reader, newTestTemplates(t)))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/orders/999", 1))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

type mockProductReader struct {
	findByIDFunc func(ctx context.Context, id int64) (*model.Product, error)
}

func (m *mockProductReader) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	return m.findByIDFunc(ctx, id)
}

func TestProductDetail(t *testing.T) {
	reader := &mockProductReader{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Product, error) {
			return &model.Product{ID: 1, Name: "27インチモニター", Description: "4K対応", Price: 999.99}, nil
		},
	}
	h := NewProductHandler(reader, newTestTemplates(t))

	r := chi.NewRouter()
	r.Get("/products/{id}", h.Detail)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "27インチモニター") || !strings.Contains(body, "999.99") {
		t.Error("body does not contain product details")
	}
}

func TestProductDetail_NotFound(t *testing.T) {
	reader := &mockProductReader{
		findByIDFunc: func(ctx context.Context, id int64) (*model.Product, error) {
			return nil, nil
		},
	}
	h := NewProductHandler(reader, newTestTemplates(t))

	r := chi.NewRouter()
	r.Get("/products/{id}", h.Detail)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/999", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
