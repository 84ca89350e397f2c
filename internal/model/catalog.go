// Package model はドメインモデルを定義する。
package model

import "time"

// Product は商品を表す。詳細ページでの参照専用。
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
}

// Order は顧客の注文を表す。
type Order struct {
	ID         int64
	CustomerID int64
	Status     string
	OrderedAt  time.Time
}

// OrderLineItem は注文の明細行を表す。
// UnitPriceは注文時点の商品価格を固定保持する。
// 以降に商品価格が変更されても明細の金額は変わらない。
type OrderLineItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// Subtotal は明細行の小計を返す。
func (i OrderLineItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}

// OrderDetail は注文と明細行を結合したモデル。
type OrderDetail struct {
	Order
	Items []OrderLineItem
}

// Total は注文合計金額を返す。
func (d *OrderDetail) Total() float64 {
	var total float64
	for _, item := range d.Items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return total
}
