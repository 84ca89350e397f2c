// Package model はドメインモデルを定義する。
package model

import "time"

// Customer は管理対象の顧客レコードを表す。
// PasswordHashは一方向ハッシュであり、画面やレスポンスに出力してはならない。
type Customer struct {
	ID           int64
	Name         string
	Age          int
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// ProtectedCustomerID は削除が禁止されているシード管理者レコードのID。
const ProtectedCustomerID int64 = 1

// Session は顧客のログインセッションを表す。
type Session struct {
	ID         string
	CustomerID int64
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
