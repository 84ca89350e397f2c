package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/kanri/internal/model"
)

// PostgresOrderRepo はPostgreSQLを使用した注文リポジトリ。
type PostgresOrderRepo struct {
	db *sql.DB
}

// NewPostgresOrderRepo はPostgresOrderRepoを生成する。
func NewPostgresOrderRepo(db *sql.DB) *PostgresOrderRepo {
	return &PostgresOrderRepo{db: db}
}

// ListByCustomerID は指定顧客の注文一覧を注文日時の降順で返す。
func (r *PostgresOrderRepo) ListByCustomerID(ctx context.Context, customerID int64) ([]*model.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, customer_id, status, ordered_at
		 FROM orders
		 WHERE customer_id = $1
		 ORDER BY ordered_at DESC, id DESC`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*model.Order{}
	for rows.Next() {
		order := &model.Order{}
		if err := rows.Scan(&order.ID, &order.CustomerID, &order.Status, &order.OrderedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order rows: %w", err)
	}

	return orders, nil
}

// FindDetailByID は注文と明細行を取得する。見つからない場合はnilを返す。
// 明細のunit_priceは注文時点の固定価格であり、products.priceとはJOINしない。
// 商品名のみ表示用にJOINで取得する。
func (r *PostgresOrderRepo) FindDetailByID(ctx context.Context, id int64) (*model.OrderDetail, error) {
	detail := &model.OrderDetail{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, status, ordered_at FROM orders WHERE id = $1`,
		id,
	).Scan(&detail.ID, &detail.CustomerID, &detail.Status, &detail.OrderedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = $1
		 ORDER BY oi.id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := model.OrderLineItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName,
			&item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item row: %w", err)
		}
		detail.Items = append(detail.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order item rows: %w", err)
	}

	return detail, nil
}

// compile-time interface check
var _ OrderRepository = (*PostgresOrderRepo)(nil)
