package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopeazy-backend/internal/sequence"
	"github.com/angelmondragon/shopeazy-backend/internal/users"
	"github.com/angelmondragon/shopeazy-backend/pkg/db"
	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
)

// Service exposes seller onboarding and lookup.
type Service interface {
	Register(ctx context.Context, userID uuid.UUID, input RegisterInput) (*SellerDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*SellerDTO, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*SellerDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo   *Repository
	users  *users.Repository
	tx     txRunner
	issuer sequence.Issuer
}

func NewService(repo *Repository, usersRepo *users.Repository, tx txRunner, issuer sequence.Issuer) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("seller repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("sequence issuer required")
	}
	return &service{repo: repo, users: usersRepo, tx: tx, issuer: issuer}, nil
}

// Register attaches a seller profile to the user. A user owns at most one profile.
func (s *service) Register(ctx context.Context, userID uuid.UUID, input RegisterInput) (*SellerDTO, error) {
	company := strings.TrimSpace(input.CompanyName)
	if company == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "company_name is required")
	}

	var created *SellerDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txUsers := s.users.WithTx(tx)

		user, err := txUsers.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, users.ErrUserNotFound) {
				return pkgerrors.NotFound("user")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
		}

		if _, err := txRepo.FindByUserID(ctx, userID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "seller profile already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup seller")
		}

		number, err := s.issuer.Next(ctx, tx, enums.SequenceSeller)
		if err != nil {
			return err
		}

		seller := &models.Seller{
			UserID:       userID,
			SellerNumber: number,
			CompanyName:  company,
		}
		if err := txRepo.Create(ctx, seller); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "seller profile already exists")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create seller")
		}

		if user.Role == enums.UserRoleCustomer {
			if err := txUsers.UpdateRole(ctx, userID, enums.UserRoleSeller); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote user role")
			}
		}
		created = FromModel(seller)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SellerDTO, error) {
	seller, err := s.repo.FindByID(ctx, id)
	return s.toDTO(seller, err)
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) (*SellerDTO, error) {
	seller, err := s.repo.FindByUserID(ctx, userID)
	return s.toDTO(seller, err)
}

func (s *service) toDTO(seller *models.Seller, err error) (*SellerDTO, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("seller")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	return FromModel(seller), nil
}
