// Package auth はログイン・ログアウトとセッション照会を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/kanri/internal/model"
	"github.com/hitoshi/kanri/internal/repository"
)

// Service は認証サービス。
type Service struct {
	customers     repository.CustomerRepository
	sessions      repository.SessionRepository
	sessionMaxAge time.Duration
}

// NewService はServiceを生成する。
func NewService(customers repository.CustomerRepository, sessions repository.SessionRepository, sessionMaxAge time.Duration) *Service {
	return &Service{
		customers:     customers,
		sessions:      sessions,
		sessionMaxAge: sessionMaxAge,
	}
}

// Login はメールアドレスとパスワードを検証し、新しいセッションを発行する。
// 失敗理由（アカウント不存在かパスワード不一致か）は区別せず、
// 常に同一のINVALID_CREDENTIALSエラーを返す。
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	customer, err := s.customers.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer by email: %w", err)
	}
	if customer == nil {
		// 不存在の場合もハッシュ比較と同程度の時間を消費させる。
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login failed",
			slog.Int64("customer_id", customer.ID),
		)
		return nil, model.NewInvalidCredentialsError()
	}

	session := &model.Session{
		ID:         uuid.NewString(),
		CustomerID: customer.ID,
		ExpiresAt:  time.Now().Add(s.sessionMaxAge),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("login succeeded",
		slog.Int64("customer_id", customer.ID),
	)

	return session, nil
}

// Logout は指定セッションを破棄する。存在しないセッションIDでも成功として扱う。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// GetCurrentCustomer はセッションIDから顧客を解決する。
// セッションが無効・期限切れ、または顧客が既に削除されている場合はnilを返す。
func (s *Service) GetCurrentCustomer(ctx context.Context, sessionID string) (*model.Customer, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	customer, err := s.customers.FindByID(ctx, session.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	return customer, nil
}

// dummyHash は"invalid"のbcryptハッシュ。タイミング差の平準化にのみ使う。
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
