package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/shopeazy-backend/api/responses"
	"github.com/angelmondragon/shopeazy-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

type sequenceResetter interface {
	Reset(ctx context.Context, ns enums.SequenceNamespace) error
}

type sequenceResetResponse struct {
	Namespace enums.SequenceNamespace `json:"namespace"`
	Value     int64                   `json:"value"`
}

// AdminResetSequence zeroes a numbering namespace so the next issued number is 1.
func AdminResetSequence(issuer sequenceResetter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ns, err := enums.ParseSequenceNamespace(chi.URLParam(r, "namespace"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown sequence namespace"))
			return
		}

		if err := issuer.Reset(r.Context(), ns); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(logg.WithField(r.Context(), "namespace", string(ns)), "sequence.reset")
		}
		responses.WriteSuccess(w, sequenceResetResponse{Namespace: ns})
	}
}
