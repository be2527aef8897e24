package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/bed-alerts/internal/domain"
	"github.com/bed-alerts/internal/logger"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrBadRequest, http.StatusBadRequest},
	{domain.ErrConflict, http.StatusConflict},
}

// httpError maps domain errors to status codes. Anything unrecognised is
// logged and answered with a generic 500.
func httpError(ctx context.Context, w http.ResponseWriter, err error) {
	for _, m := range statusBySentinel {
		if errors.Is(err, m.err) {
			writeError(w, m.status, err.Error())
			return
		}
	}
	logger.ErrorKV(ctx, "request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
