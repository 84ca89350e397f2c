package customer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/kanri/internal/model"
	"github.com/hitoshi/kanri/internal/repository"
	"github.com/hitoshi/kanri/internal/security"
)

// Service は顧客管理のサービス層。
// 一覧クエリパイプラインとCRUD操作のビジネスロジックを提供する。
type Service struct {
	repo      repository.CustomerRepository
	sanitizer security.InputSanitizerService
}

// NewService はServiceを生成する。
func NewService(repo repository.CustomerRepository, sanitizer security.InputSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// List は一覧クエリパイプラインを実行する。
// パラメータを正規化し、フィルタ適用後の総数の取得と1ページ分の読み取りを行う。
// 読み取り専用・冪等であり、不正なパラメータはエラーにせず正規化する。
// 最終ページを超えたページ番号では空のItemsと正しいメタデータを返す。
func (s *Service) List(ctx context.Context, params ListParams) (*Page, error) {
	params = params.normalize()

	totalItems, err := s.repo.Count(ctx, params.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}

	items, err := s.repo.List(ctx, repository.CustomerListParams{
		Query:         params.Query,
		SortKey:       params.SortKey,
		SortDirection: params.SortDirection,
		Limit:         PageSize,
		Offset:        (params.Page - 1) * PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}

	return newPage(items, params, totalItems), nil
}

// Get は指定IDの顧客を返す。見つからない場合はCUSTOMER_NOT_FOUNDエラーを返す。
func (s *Service) Get(ctx context.Context, id int64) (*model.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	if customer == nil {
		return nil, model.NewCustomerNotFoundError(id)
	}
	return customer, nil
}

// Input は作成・更新のフォーム入力。
// AgeはAtoi前の生文字列のまま受け取り、検証の一部として変換する。
type Input struct {
	Name     string
	Age      string
	Email    string
	Password string // 作成時のみ必須。更新では無視される。
}

// Create は顧客を新規作成する。
// 検証エラーはストア呼び出し前に返し、副作用を発生させない。
// email重複時はDUPLICATE_EMAILエラーを返す（単一INSERTのため部分書き込みは発生しない）。
func (s *Service) Create(ctx context.Context, input Input) (*model.Customer, error) {
	name, age, email, err := s.validate(input, true)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	customer := &model.Customer{
		Name:         name,
		Age:          age,
		Email:        email,
		PasswordHash: string(hash),
	}

	if err := s.repo.Create(ctx, customer); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewDuplicateEmailError(email)
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	slog.Info("customer created",
		slog.Int64("customer_id", customer.ID),
	)

	return customer, nil
}

// Update は顧客のname/age/emailを更新する。
// password_credentialはこの経路では変更しない。
// email重複時はDUPLICATE_EMAILエラーを返し、既存レコードは変更されない。
func (s *Service) Update(ctx context.Context, id int64, input Input) (*model.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	if customer == nil {
		return nil, model.NewCustomerNotFoundError(id)
	}

	name, age, email, err := s.validate(input, false)
	if err != nil {
		return nil, err
	}

	customer.Name = name
	customer.Age = age
	customer.Email = email

	if err := s.repo.Update(ctx, customer); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewDuplicateEmailError(email)
		}
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	slog.Info("customer updated",
		slog.Int64("customer_id", customer.ID),
	)

	return customer, nil
}

// Delete は顧客を削除する。
// シード管理者レコードはPROTECTED_RECORDエラーで保護され、ストア呼び出しは行わない。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == model.ProtectedCustomerID {
		return model.NewProtectedRecordError()
	}

	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find customer: %w", err)
	}
	if customer == nil {
		return model.NewCustomerNotFoundError(id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	slog.Info("customer deleted",
		slog.Int64("customer_id", id),
	)

	return nil
}

// validate はフォーム入力を検証し、正規化済みの値を返す。
// requirePasswordは作成経路でのみtrueにする。
func (s *Service) validate(input Input, requirePassword bool) (name string, age int, email string, err error) {
	var problems []string

	name = strings.TrimSpace(input.Name)
	if s.sanitizer != nil {
		name = s.sanitizer.Sanitize(name)
	}
	if name == "" {
		problems = append(problems, "名前は必須です")
	}

	age, ageErr := strconv.Atoi(strings.TrimSpace(input.Age))
	if ageErr != nil {
		problems = append(problems, "年齢は整数で入力してください")
	} else if age < 0 {
		problems = append(problems, "年齢は0以上で入力してください")
	}

	email = strings.TrimSpace(input.Email)
	if email == "" {
		problems = append(problems, "メールアドレスは必須です")
	}

	if requirePassword && input.Password == "" {
		problems = append(problems, "パスワードは必須です")
	}

	if len(problems) > 0 {
		return "", 0, "", model.NewValidationError(strings.Join(problems, "。"))
	}

	return name, age, email, nil
}
