package controllers

import (
	"net/http"

	"github.com/angelmondragon/shopeazy-backend/api/responses"
	"github.com/angelmondragon/shopeazy-backend/api/validators"
	"github.com/angelmondragon/shopeazy-backend/internal/sellers"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

type registerSellerRequest struct {
	CompanyName string `json:"company_name" validate:"required,max=200"`
}

// RegisterSeller attaches a seller profile to the caller.
func RegisterSeller(svc sellers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "seller service unavailable"))
			return
		}

		userID, _, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload registerSellerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		seller, err := svc.Register(r.Context(), userID, sellers.RegisterInput{
			CompanyName: validators.SanitizeString(payload.CompanyName, 200),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, seller)
	}
}
