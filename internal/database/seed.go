package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed は動作確認用の初期データを投入する。
// 管理者顧客、デモ商品2件、配達済み注文1件（明細2行）を作成する。
// 各テーブルにすでにレコードが存在する場合はそのテーブルへの投入をスキップするため、
// 何度実行しても安全である。
func Seed(ctx context.Context, db *sql.DB, adminPassword string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := seedAdminCustomer(ctx, tx, adminPassword); err != nil {
		return err
	}
	if err := seedProducts(ctx, tx); err != nil {
		return err
	}
	if err := seedOrder(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed transaction: %w", err)
	}

	slog.Info("seed data applied")
	return nil
}

// seedAdminCustomer は管理者顧客を作成する。
// customersテーブルの最初のレコードとなるため、保護対象のid=1が割り当てられる。
func seedAdminCustomer(ctx context.Context, tx *sql.Tx, adminPassword string) error {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers)`,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check customers: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO customers (name, age, email, password_hash)
		 VALUES ($1, $2, $3, $4)`,
		"管理者", 30, "admin@example.com", string(hash),
	)
	if err != nil {
		return fmt.Errorf("failed to insert admin customer: %w", err)
	}

	slog.Info("admin customer seeded",
		slog.String("email", "admin@example.com"),
	)
	return nil
}

// seedProducts はデモ商品を作成する。
func seedProducts(ctx context.Context, tx *sql.Tx) error {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products)`,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check products: %w", err)
	}
	if exists {
		return nil
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO products (name, description, price) VALUES
		 ($1, $2, $3),
		 ($4, $5, $6)`,
		"27インチモニター", "144Hzゲーミングモニター", 999.99,
		"メカニカルキーボード", "RGBバックライト・青軸", 250.00,
	)
	if err != nil {
		return fmt.Errorf("failed to insert products: %w", err)
	}
	return nil
}

// seedOrder は管理者顧客の配達済み注文を明細付きで作成する。
// 明細のunit_priceには投入時点の商品価格をコピーする。
func seedOrder(ctx context.Context, tx *sql.Tx) error {
	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders)`,
	).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check orders: %w", err)
	}
	if exists {
		return nil
	}

	var customerID int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM customers WHERE email = $1`,
		"admin@example.com",
	).Scan(&customerID)
	if err == sql.ErrNoRows {
		// 管理者が未投入の場合は注文も作らない
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to find admin customer: %w", err)
	}

	var orderID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_id, status) VALUES ($1, $2) RETURNING id`,
		customerID, "配達済み",
	).Scan(&orderID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		 SELECT $1, id, $2, price FROM products WHERE name = $3`,
		orderID, 1, "27インチモニター",
	)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		 SELECT $1, id, $2, price FROM products WHERE name = $3`,
		orderID, 2, "メカニカルキーボード",
	)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}

	return nil
}
