package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/shopeazy-backend/api/responses"
	pkgerrors "github.com/angelmondragon/shopeazy-backend/pkg/errors"
	"github.com/angelmondragon/shopeazy-backend/pkg/logger"
)

// Recoverer turns handler panics into a 500 envelope. http.ErrAbortHandler keeps its
// meaning and is re-raised for net/http to handle.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithFields(ctx, map[string]any{
						"method": r.Method,
						"path":   r.URL.Path,
					})
				}
				// WriteError logs internal errors with the stack.
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
