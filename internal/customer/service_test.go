package customer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/kanri/internal/model"
	"github.com/hitoshi/kanri/internal/repository"
	"github.com/hitoshi/kanri/internal/security"
)

// fakeCustomerRepo はフィルタ・ソート・ページングの意味論を
// メモリ上で再現するテスト用リポジトリ。
type fakeCustomerRepo struct {
	customers []*model.Customer
	nextID    int64

	// 各メソッドを差し替えてエラー経路を注入できる。
	countFunc  func(ctx context.Context, query string) (int, error)
	createFunc func(ctx context.Context, c *model.Customer) error
	updateFunc func(ctx context.Context, c *model.Customer) error
}

var _ repository.CustomerRepository = (*fakeCustomerRepo)(nil)

func newFakeCustomerRepo(customers ...*model.Customer) *fakeCustomerRepo {
	repo := &fakeCustomerRepo{nextID: 1}
	for _, c := range customers {
		clone := *c
		if clone.ID == 0 {
			clone.ID = repo.nextID
		}
		if clone.ID >= repo.nextID {
			repo.nextID = clone.ID + 1
		}
		repo.customers = append(repo.customers, &clone)
	}
	return repo
}

func (f *fakeCustomerRepo) filtered(query string) []*model.Customer {
	var out []*model.Customer
	needle := strings.ToLower(query)
	for _, c := range f.customers {
		if query == "" || strings.Contains(strings.ToLower(c.Name), needle) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeCustomerRepo) FindByID(ctx context.Context, id int64) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.ID == id {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeCustomerRepo) FindByEmail(ctx context.Context, email string) (*model.Customer, error) {
	for _, c := range f.customers {
		if c.Email == email {
			clone := *c
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeCustomerRepo) List(ctx context.Context, params repository.CustomerListParams) ([]*model.Customer, error) {
	matched := f.filtered(params.Query)

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		var cmp int
		switch params.SortKey {
		case "age":
			cmp = a.Age - b.Age
		default:
			cmp = strings.Compare(a.Name, b.Name)
		}
		if params.SortDirection == "desc" {
			if cmp != 0 {
				return cmp > 0
			}
			return a.ID > b.ID
		}
		if cmp != 0 {
			return cmp < 0
		}
		return a.ID < b.ID
	})

	if params.Offset >= len(matched) {
		return nil, nil
	}
	end := params.Offset + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*model.Customer, 0, end-params.Offset)
	for _, c := range matched[params.Offset:end] {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeCustomerRepo) Count(ctx context.Context, query string) (int, error) {
	if f.countFunc != nil {
		return f.countFunc(ctx, query)
	}
	return len(f.filtered(query)), nil
}

func (f *fakeCustomerRepo) Create(ctx context.Context, c *model.Customer) error {
	if f.createFunc != nil {
		return f.createFunc(ctx, c)
	}
	for _, existing := range f.customers {
		if existing.Email == c.Email {
			return &pq.Error{Code: "23505", Constraint: "customers_email_key"}
		}
	}
	c.ID = f.nextID
	f.nextID++
	clone := *c
	f.customers = append(f.customers, &clone)
	return nil
}

func (f *fakeCustomerRepo) Update(ctx context.Context, c *model.Customer) error {
	if f.updateFunc != nil {
		return f.updateFunc(ctx, c)
	}
	for _, existing := range f.customers {
		if existing.Email == c.Email && existing.ID != c.ID {
			return &pq.Error{Code: "23505", Constraint: "customers_email_key"}
		}
	}
	for i, existing := range f.customers {
		if existing.ID == c.ID {
			clone := *c
			clone.PasswordHash = existing.PasswordHash
			f.customers[i] = &clone
			return nil
		}
	}
	return fmt.Errorf("customer not found: id=%d", c.ID)
}

func (f *fakeCustomerRepo) Delete(ctx context.Context, id int64) error {
	for i, existing := range f.customers {
		if existing.ID == id {
			f.customers = append(f.customers[:i], f.customers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("customer not found: id=%d", id)
}

func newTestService(repo repository.CustomerRepository) *Service {
	return NewService(repo, security.NewInputSanitizer())
}

// silvaFixture は検索シナリオ用の6件。うち3件の名前に"Silva"を含む。
func silvaFixture() []*model.Customer {
	return []*model.Customer{
		{ID: 1, Name: "Ana Silva", Age: 30, Email: "ana@example.com"},
		{ID: 2, Name: "Bruno Costa", Age: 25, Email: "bruno@example.com"},
		{ID: 3, Name: "Carla da Silva", Age: 41, Email: "carla@example.com"},
		{ID: 4, Name: "Daniel Rocha", Age: 19, Email: "daniel@example.com"},
		{ID: 5, Name: "Eduardo silva", Age: 52, Email: "eduardo@example.com"},
		{ID: 6, Name: "Fernanda Lima", Age: 33, Email: "fernanda@example.com"},
	}
}

func TestServiceList_FilterIsCaseInsensitiveSubstring(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo(silvaFixture()...))

	page, err := svc.List(context.Background(), ListParams{Query: "silva"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if page.TotalItems != 3 {
		t.Errorf("TotalItems = %d, want 3", page.TotalItems)
	}
	if page.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", page.TotalPages)
	}
	if page.HasNext {
		t.Error("HasNext = true, want false")
	}
	if page.HasPrevious {
		t.Error("HasPrevious = true, want false")
	}
	if len(page.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(page.Items))
	}
	for _, c := range page.Items {
		if !strings.Contains(strings.ToLower(c.Name), "silva") {
			t.Errorf("item %q does not match query", c.Name)
		}
	}
}

func TestServiceList_PageLength(t *testing.T) {
	var customers []*model.Customer
	for i := 1; i <= 12; i++ {
		customers = append(customers, &model.Customer{
			ID:    int64(i),
			Name:  fmt.Sprintf("顧客%02d", i),
			Age:   20 + i,
			Email: fmt.Sprintf("c%d@example.com", i),
		})
	}
	svc := newTestService(newFakeCustomerRepo(customers...))

	tests := []struct {
		page      int
		wantItems int
	}{
		{1, 5},
		{2, 5},
		{3, 2},
		{4, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
			page, err := svc.List(context.Background(), ListParams{Page: tt.page})
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(page.Items) != tt.wantItems {
				t.Errorf("len(Items) = %d, want %d", len(page.Items), tt.wantItems)
			}
			if page.TotalItems != 12 {
				t.Errorf("TotalItems = %d, want 12", page.TotalItems)
			}
			if page.TotalPages != 3 {
				t.Errorf("TotalPages = %d, want 3", page.TotalPages)
			}
		})
	}
}

func TestServiceList_SortByAge(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo(silvaFixture()...))

	asc, err := svc.List(context.Background(), ListParams{SortKey: SortKeyAge, SortDirection: SortAsc})
	if err != nil {
		t.Fatalf("List(asc) error = %v", err)
	}
	for i := 1; i < len(asc.Items); i++ {
		if asc.Items[i-1].Age > asc.Items[i].Age {
			t.Errorf("ascending order violated at %d: %d > %d", i, asc.Items[i-1].Age, asc.Items[i].Age)
		}
	}

	desc, err := svc.List(context.Background(), ListParams{SortKey: SortKeyAge, SortDirection: SortDesc})
	if err != nil {
		t.Fatalf("List(desc) error = %v", err)
	}
	for i := 1; i < len(desc.Items); i++ {
		if desc.Items[i-1].Age < desc.Items[i].Age {
			t.Errorf("descending order violated at %d: %d < %d", i, desc.Items[i-1].Age, desc.Items[i].Age)
		}
	}
}

func TestServiceList_SortTiebreakByID(t *testing.T) {
	customers := []*model.Customer{
		{ID: 1, Name: "鈴木", Age: 30, Email: "a@example.com"},
		{ID: 2, Name: "鈴木", Age: 30, Email: "b@example.com"},
		{ID: 3, Name: "鈴木", Age: 30, Email: "c@example.com"},
	}
	svc := newTestService(newFakeCustomerRepo(customers...))

	asc, err := svc.List(context.Background(), ListParams{SortKey: SortKeyName, SortDirection: SortAsc})
	if err != nil {
		t.Fatalf("List(asc) error = %v", err)
	}
	for i, want := range []int64{1, 2, 3} {
		if asc.Items[i].ID != want {
			t.Errorf("asc Items[%d].ID = %d, want %d", i, asc.Items[i].ID, want)
		}
	}

	desc, err := svc.List(context.Background(), ListParams{SortKey: SortKeyName, SortDirection: SortDesc})
	if err != nil {
		t.Fatalf("List(desc) error = %v", err)
	}
	for i, want := range []int64{3, 2, 1} {
		if desc.Items[i].ID != want {
			t.Errorf("desc Items[%d].ID = %d, want %d", i, desc.Items[i].ID, want)
		}
	}
}

func TestServiceList_LenientParameters(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo(silvaFixture()...))

	page, err := svc.List(context.Background(), ListParams{
		SortKey:       "password_hash",
		SortDirection: "sideways",
		Page:          -3,
	})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.SortKey != SortKeyName {
		t.Errorf("SortKey = %q, want %q", page.SortKey, SortKeyName)
	}
	if page.SortDirection != SortAsc {
		t.Errorf("SortDirection = %q, want %q", page.SortDirection, SortAsc)
	}
	if page.PageNumber != 1 {
		t.Errorf("PageNumber = %d, want 1", page.PageNumber)
	}
}

func TestServiceList_Idempotent(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo(silvaFixture()...))
	params := ListParams{Query: "Silva", SortKey: SortKeyAge, SortDirection: SortDesc, Page: 1}

	first, err := svc.List(context.Background(), params)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	second, err := svc.List(context.Background(), params)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(first.Items) != len(second.Items) {
		t.Fatalf("item counts differ: %d != %d", len(first.Items), len(second.Items))
	}
	for i := range first.Items {
		if first.Items[i].ID != second.Items[i].ID {
			t.Errorf("Items[%d].ID differs: %d != %d", i, first.Items[i].ID, second.Items[i].ID)
		}
	}
}

func TestServiceList_CountError(t *testing.T) {
	repo := newFakeCustomerRepo()
	repo.countFunc = func(ctx context.Context, query string) (int, error) {
		return 0, errors.New("connection refused")
	}
	svc := newTestService(repo)

	if _, err := svc.List(context.Background(), ListParams{}); err == nil {
		t.Error("List() error = nil, want error")
	}
}

func TestServiceGet(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo(silvaFixture()...))

	customer, err := svc.Get(context.Background(), 1)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if customer.Name != "Ana Silva" {
		t.Errorf("Name = %q, want %q", customer.Name, "Ana Silva")
	}

	_, err = svc.Get(context.Background(), 999)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "CUSTOMER_NOT_FOUND" {
		t.Errorf("Get(999) error = %v, want CUSTOMER_NOT_FOUND", err)
	}
}

func TestServiceCreate(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)

	customer, err := svc.Create(context.Background(), Input{
		Name:     "  山田 太郎  ",
		Age:      "28",
		Email:    "yamada@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if customer.ID == 0 {
		t.Error("ID was not assigned")
	}
	if customer.Name != "山田 太郎" {
		t.Errorf("Name = %q, want trimmed %q", customer.Name, "山田 太郎")
	}
	if customer.Age != 28 {
		t.Errorf("Age = %d, want 28", customer.Age)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte("secret")); err != nil {
		t.Errorf("password hash does not match: %v", err)
	}
}

func TestServiceCreate_SanitizesName(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo())

	customer, err := svc.Create(context.Background(), Input{
		Name:     `<script>alert(1)</script>田中`,
		Age:      "40",
		Email:    "tanaka@example.com",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if strings.Contains(customer.Name, "<script>") {
		t.Errorf("Name still contains markup: %q", customer.Name)
	}
}

func TestServiceCreate_Validation(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)
	before := len(repo.customers)

	tests := []struct {
		name  string
		input Input
	}{
		{"empty name", Input{Name: "", Age: "30", Email: "x@example.com", Password: "p"}},
		{"whitespace name", Input{Name: "   ", Age: "30", Email: "x@example.com", Password: "p"}},
		{"non-numeric age", Input{Name: "田中", Age: "abc", Email: "x@example.com", Password: "p"}},
		{"negative age", Input{Name: "田中", Age: "-1", Email: "x@example.com", Password: "p"}},
		{"empty email", Input{Name: "田中", Age: "30", Email: "", Password: "p"}},
		{"missing password", Input{Name: "田中", Age: "30", Email: "x@example.com", Password: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != "VALIDATION_ERROR" {
				t.Errorf("Create() error = %v, want VALIDATION_ERROR", err)
			}
		})
	}

	if len(repo.customers) != before {
		t.Errorf("customer count changed: %d -> %d", before, len(repo.customers))
	}
}

func TestServiceCreate_DuplicateEmail(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)
	before := len(repo.customers)

	_, err := svc.Create(context.Background(), Input{
		Name:     "別人",
		Age:      "20",
		Email:    "ana@example.com",
		Password: "secret",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "DUPLICATE_EMAIL" {
		t.Fatalf("Create() error = %v, want DUPLICATE_EMAIL", err)
	}
	if len(repo.customers) != before {
		t.Errorf("customer count changed: %d -> %d", before, len(repo.customers))
	}
}

func TestServiceUpdate(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)

	updated, err := svc.Update(context.Background(), 2, Input{
		Name:  "Bruno Costa Jr",
		Age:   "26",
		Email: "bruno.jr@example.com",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Bruno Costa Jr" || updated.Age != 26 || updated.Email != "bruno.jr@example.com" {
		t.Errorf("unexpected customer after update: %+v", updated)
	}
}

func TestServiceUpdate_DuplicateEmail(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)

	_, err := svc.Update(context.Background(), 2, Input{
		Name:  "Bruno Costa",
		Age:   "25",
		Email: "ana@example.com",
	})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "DUPLICATE_EMAIL" {
		t.Fatalf("Update() error = %v, want DUPLICATE_EMAIL", err)
	}

	// 既存レコードが変更されていないこと。
	existing, _ := repo.FindByID(context.Background(), 2)
	if existing.Email != "bruno@example.com" {
		t.Errorf("existing email changed to %q", existing.Email)
	}
}

func TestServiceUpdate_OwnEmailIsNotDuplicate(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)

	if _, err := svc.Update(context.Background(), 2, Input{
		Name:  "Bruno Costa",
		Age:   "25",
		Email: "bruno@example.com",
	}); err != nil {
		t.Errorf("Update() with unchanged email error = %v", err)
	}
}

func TestServiceUpdate_NotFound(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo(silvaFixture()...))

	_, err := svc.Update(context.Background(), 999, Input{Name: "x", Age: "1", Email: "x@example.com"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "CUSTOMER_NOT_FOUND" {
		t.Errorf("Update(999) error = %v, want CUSTOMER_NOT_FOUND", err)
	}
}

func TestServiceDelete(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)

	if err := svc.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if c, _ := repo.FindByID(context.Background(), 2); c != nil {
		t.Error("customer still exists after delete")
	}
}

func TestServiceDelete_ProtectedRecord(t *testing.T) {
	repo := newFakeCustomerRepo(silvaFixture()...)
	svc := newTestService(repo)
	before := len(repo.customers)

	err := svc.Delete(context.Background(), model.ProtectedCustomerID)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "PROTECTED_RECORD" {
		t.Fatalf("Delete(1) error = %v, want PROTECTED_RECORD", err)
	}
	if len(repo.customers) != before {
		t.Errorf("customer count changed: %d -> %d", before, len(repo.customers))
	}
}

func TestServiceDelete_NotFound(t *testing.T) {
	svc := newTestService(newFakeCustomerRepo(silvaFixture()...))

	err := svc.Delete(context.Background(), 999)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "CUSTOMER_NOT_FOUND" {
		t.Errorf("Delete(999) error = %v, want CUSTOMER_NOT_FOUND", err)
	}
}
