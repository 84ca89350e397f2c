// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/kanri/internal/model"
)

// CustomerListParams は顧客一覧クエリの実行パラメータ。
// 値は呼び出し側（customerパッケージ）で正規化済みであることを前提とする。
type CustomerListParams struct {
	Query         string // 名前の部分一致フィルタ。空の場合は全件。
	SortKey       string // "name" または "age"
	SortDirection string // "asc" または "desc"
	Limit         int
	Offset        int
}

// CustomerRepository は顧客データの永続化インターフェース。
type CustomerRepository interface {
	// FindByID は指定IDの顧客を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Customer, error)

	// FindByEmail は指定メールアドレスの顧客を取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)

	// List はフィルタ・ソート・ページ指定に従って顧客の一覧を返す。
	// 並び順はソートキー、同値の場合はidで安定化される。
	List(ctx context.Context, params CustomerListParams) ([]*model.Customer, error)

	// Count はフィルタ適用後の顧客総数を返す。
	Count(ctx context.Context, query string) (int, error)

	// Create は顧客を作成し、採番されたIDと作成日時をcustomerに書き戻す。
	// email重複の場合はIsUniqueViolationで判定可能なエラーを返す。
	Create(ctx context.Context, customer *model.Customer) error

	// Update は顧客のname/age/emailを更新する。password_hashは変更しない。
	// email重複の場合はIsUniqueViolationで判定可能なエラーを返す。
	Update(ctx context.Context, customer *model.Customer) error

	// Delete は指定IDの顧客を削除する。対象が存在しない場合はエラーを返す。
	Delete(ctx context.Context, id int64) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByCustomerID は指定顧客の全セッションを削除する。
	DeleteByCustomerID(ctx context.Context, customerID int64) error
}

// ProductRepository は商品データの読み取りインターフェース。
type ProductRepository interface {
	// FindByID は指定IDの商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Product, error)
}

// OrderRepository は注文データの読み取りインターフェース。
type OrderRepository interface {
	// ListByCustomerID は指定顧客の注文一覧を注文日時の降順で返す。
	ListByCustomerID(ctx context.Context, customerID int64) ([]*model.Order, error)

	// FindDetailByID は注文と明細行（商品名付き）を取得する。
	// 見つからない場合はnilを返す。
	FindDetailByID(ctx context.Context, id int64) (*model.OrderDetail, error)
}
