package rest

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/jagcoaching/speechcoach/internal/common"
	"github.com/jagcoaching/speechcoach/internal/server/services"
)

// Outward messages. Internal error text never reaches the client.
const (
	msgInvalidCredentials  = "Incorrect email or password"
	msgInvalidRefreshToken = "Invalid or expired refresh token"
	msgNotAuthenticated    = "Could not validate credentials"
	msgDuplicateEmail      = "User with this email already exists"
	msgTooManyRequests     = "Too many login attempts, try again later"
	msgNotFound            = "Not found"
	msgUnavailable         = "Service temporarily unavailable"
	msgInternal            = "Internal server error"
)

// writeError maps an error kind to a status code and a fixed message.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rle *services.RateLimitError

	switch {
	case errors.As(err, &rle):
		secs := int(math.Ceil(rle.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		writeDetail(w, http.StatusTooManyRequests, msgTooManyRequests)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeUnauthorized(w, msgInvalidCredentials)
	case errors.Is(err, common.ErrInvalidRefreshToken):
		writeUnauthorized(w, msgInvalidRefreshToken)
	case errors.Is(err, common.ErrorUnauthorized):
		writeUnauthorized(w, msgNotAuthenticated)
	case errors.Is(err, common.ErrorAlreadyExists):
		writeDetail(w, http.StatusBadRequest, msgDuplicateEmail)
	case errors.Is(err, common.ErrorValidation):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		writeDetail(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, common.ErrorUnavailable):
		h.log.Error(r.Context(), "dependency unavailable", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusServiceUnavailable, msgUnavailable)
	default:
		h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusInternalServerError, msgInternal)
	}
}
