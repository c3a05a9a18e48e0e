package sellers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/shopeazy-backend/pkg/db/models"
)

// SellerDTO is the merchant profile returned to clients.
type SellerDTO struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	SellerNumber string    `json:"seller_number"`
	CompanyName  string    `json:"company_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterInput is the validated seller onboarding payload.
type RegisterInput struct {
	CompanyName string
}

func FromModel(s *models.Seller) *SellerDTO {
	if s == nil {
		return nil
	}
	return &SellerDTO{
		ID:           s.ID,
		UserID:       s.UserID,
		SellerNumber: s.SellerNumber,
		CompanyName:  s.CompanyName,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}
