package users

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tunnelpay/tunnelpay-backend/pkg/db/models"
	pkgerrors "github.com/tunnelpay/tunnelpay-backend/pkg/errors"
	"github.com/tunnelpay/tunnelpay-backend/pkg/logger"
)

type stubUserRepo struct {
	byTelegramID map[int64]*models.User
	byCode       map[string]*models.User
	created      []*models.User
	attached     map[uuid.UUID]uuid.UUID
	referrals    map[uuid.UUID]int64
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byTelegramID: map[int64]*models.User{},
		byCode:       map[string]*models.User{},
		attached:     map[uuid.UUID]uuid.UUID{},
		referrals:    map[uuid.UUID]int64{},
	}
}

func (s *stubUserRepo) add(user *models.User) *models.User {
	s.byTelegramID[user.TelegramID] = user
	s.byCode[user.ReferralCode] = user
	return user
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error {
	s.created = append(s.created, user)
	s.add(user)
	return nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byTelegramID {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, nil
}

func (s *stubUserRepo) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.byTelegramID[telegramID], nil
}

func (s *stubUserRepo) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	return s.byCode[code], nil
}

func (s *stubUserRepo) AttachReferrer(ctx context.Context, userID, referrerID uuid.UUID) (bool, error) {
	if _, ok := s.attached[userID]; ok {
		return false, nil
	}
	s.attached[userID] = referrerID
	return true, nil
}

func (s *stubUserRepo) IncrementTotalReferrals(ctx context.Context, userID uuid.UUID) error {
	s.referrals[userID]++
	return nil
}

func (s *stubUserRepo) AddTotalSpent(ctx context.Context, userID uuid.UUID, amountKopecks int64) error {
	return nil
}

func (s *stubUserRepo) AddReferralBalance(ctx context.Context, userID uuid.UUID, amountKopecks int64) error {
	return nil
}

func (s *stubUserRepo) DeductReferralBalance(ctx context.Context, userID uuid.UUID, amountKopecks int64) (bool, error) {
	return false, nil
}

func (s *stubUserRepo) ListActiveTelegramIDs(ctx context.Context) ([]int64, error) {
	return nil, nil
}

func (s *stubUserRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(s.byTelegramID)), nil
}

func newTestUserService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel}),
	})
	if err != nil {
		t.Fatalf("building service: %v", err)
	}
	return svc
}

func TestRegisterCreatesUserWithCode(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(t, repo)

	user, created, err := svc.Register(context.Background(), RegisterParams{TelegramID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("expected a new user")
	}
	if len(user.ReferralCode) != referralCodeLength {
		t.Fatalf("unexpected code length %d", len(user.ReferralCode))
	}
	for _, r := range user.ReferralCode {
		if !strings.ContainsRune(referralCodeAlphabet, r) {
			t.Fatalf("code %q contains %q outside the alphabet", user.ReferralCode, r)
		}
	}
}

func TestRegisterIsIdempotentPerTelegramID(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(t, repo)

	first, _, err := svc.Register(context.Background(), RegisterParams{TelegramID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, created, err := svc.Register(context.Background(), RegisterParams{TelegramID: 42})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Fatal("expected existing user")
	}
	if first.ID != second.ID {
		t.Fatal("expected the same user row")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 create, got %d", len(repo.created))
	}
}

func TestRegisterAttachesReferrer(t *testing.T) {
	repo := newStubUserRepo()
	referrer := repo.add(&models.User{ID: uuid.New(), TelegramID: 1, ReferralCode: "FRIEND01"})
	svc := newTestUserService(t, repo)

	user, _, err := svc.Register(context.Background(), RegisterParams{TelegramID: 42, ReferralCode: "FRIEND01"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ReferrerID == nil || *user.ReferrerID != referrer.ID {
		t.Fatal("expected referrer to be attached")
	}
	if repo.referrals[referrer.ID] != 1 {
		t.Fatalf("expected total_referrals bump, got %d", repo.referrals[referrer.ID])
	}
}

func TestRegisterRejectsSelfReferral(t *testing.T) {
	repo := newStubUserRepo()
	repo.add(&models.User{ID: uuid.New(), TelegramID: 42, ReferralCode: "MYSELF01"})
	svc := newTestUserService(t, repo)

	_, _, err := svc.Register(context.Background(), RegisterParams{TelegramID: 42, ReferralCode: "MYSELF01"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRegisterUnknownReferralCode(t *testing.T) {
	repo := newStubUserRepo()
	svc := newTestUserService(t, repo)

	_, _, err := svc.Register(context.Background(), RegisterParams{TelegramID: 42, ReferralCode: "NOPE0000"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
