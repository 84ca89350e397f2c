package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/kanri/internal/model"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のエラーコード。
const uniqueViolationCode = "23505"

// IsUniqueViolation はエラーがPostgreSQLの一意制約違反かどうかを判定する。
// customersテーブルではemailの重複時に発生する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}

// sortColumns は一覧クエリで許可するソートキーとカラム名の対応表。
// ORDER BY句は文字列結合で構築するため、ここに無いキーは使用しない。
var sortColumns = map[string]string{
	"name": "name",
	"age":  "age",
}

// PostgresCustomerRepo はPostgreSQLを使用した顧客リポジトリ。
type PostgresCustomerRepo struct {
	db *sql.DB
}

// NewPostgresCustomerRepo はPostgresCustomerRepoを生成する。
func NewPostgresCustomerRepo(db *sql.DB) *PostgresCustomerRepo {
	return &PostgresCustomerRepo{db: db}
}

// FindByID は指定IDの顧客を取得する。見つからない場合はnilを返す。
func (r *PostgresCustomerRepo) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	customer := &model.Customer{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, age, email, password_hash, created_at FROM customers WHERE id = $1`,
		id,
	).Scan(&customer.ID, &customer.Name, &customer.Age, &customer.Email, &customer.PasswordHash, &customer.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by ID: %w", err)
	}

	return customer, nil
}

// FindByEmail は指定メールアドレスの顧客を取得する。見つからない場合はnilを返す。
func (r *PostgresCustomerRepo) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	customer := &model.Customer{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, age, email, password_hash, created_at FROM customers WHERE email = $1`,
		email,
	).Scan(&customer.ID, &customer.Name, &customer.Age, &customer.Email, &customer.PasswordHash, &customer.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}

	return customer, nil
}

// List はフィルタ・ソート・ページ指定に従って顧客の一覧を返す。
// フィルタは名前のILIKE部分一致（大文字小文字を区別しない）。
// ORDER BYはソートキーとidの複合で、同値時のページ境界を決定的にする。
func (r *PostgresCustomerRepo) List(ctx context.Context, params CustomerListParams) ([]*model.Customer, error) {
	column, ok := sortColumns[params.SortKey]
	if !ok {
		column = "name"
	}
	direction := "ASC"
	if params.SortDirection == "desc" {
		direction = "DESC"
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, name, age, email, password_hash, created_at FROM customers`)

	args := make([]interface{}, 0, 3)
	if params.Query != "" {
		sb.WriteString(` WHERE name ILIKE '%' || $1 || '%'`)
		args = append(args, escapeLikePattern(params.Query))
	}

	fmt.Fprintf(&sb, ` ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		column, direction, direction, len(args)+1, len(args)+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []*model.Customer{}
	for rows.Next() {
		customer := &model.Customer{}
		if err := rows.Scan(&customer.ID, &customer.Name, &customer.Age, &customer.Email,
			&customer.PasswordHash, &customer.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer rows: %w", err)
	}

	return customers, nil
}

// Count はフィルタ適用後の顧客総数を返す。
func (r *PostgresCustomerRepo) Count(ctx context.Context, query string) (int, error) {
	var count int
	var err error
	if query == "" {
		err = r.db.QueryRowContext(ctx,
			`SELECT count(*) FROM customers`,
		).Scan(&count)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT count(*) FROM customers WHERE name ILIKE '%' || $1 || '%'`,
			escapeLikePattern(query),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}

// Create は顧客を作成し、採番されたIDと作成日時を書き戻す。
func (r *PostgresCustomerRepo) Create(ctx context.Context, customer *model.Customer) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO customers (name, age, email, password_hash)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		customer.Name, customer.Age, customer.Email, customer.PasswordHash,
	).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

// Update は顧客のname/age/emailを更新する。password_hashとcreated_atは変更しない。
func (r *PostgresCustomerRepo) Update(ctx context.Context, customer *model.Customer) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE customers SET name = $1, age = $2, email = $3 WHERE id = $4`,
		customer.Name, customer.Age, customer.Email, customer.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("customer not found: %d", customer.ID)
	}
	return nil
}

// Delete は指定IDの顧客を削除する。
func (r *PostgresCustomerRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM customers WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("customer not found: %d", id)
	}
	return nil
}

// escapeLikePattern はLIKE/ILIKEパターンのメタ文字をエスケープする。
// 検索文字列をリテラルの部分一致として扱うため。
func escapeLikePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// compile-time interface check
var _ CustomerRepository = (*PostgresCustomerRepo)(nil)
