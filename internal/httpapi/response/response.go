// Package response maps domain errors to HTTP statuses and machine codes.
// Both the REST handlers and the websocket replies use Classify so a failure
// carries the same code on either transport.
package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/mystery"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/domain/reward"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/engine"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/infra/backend"
	"github.com/MRamiBalles/ExoplanetDetective/server/internal/lightcurve"
)

// Error codes.
const (
	CodeBadRequest        = "bad_request"
	CodeValidation        = "validation_failed"
	CodeInvalidCSV        = "invalid_csv"
	CodeInvalidTransition = "invalid_transition"
	CodeConflict          = "conflict"
	CodeBackend           = "backend_unavailable"
	CodeNotFound          = "not_found"
	CodeRateLimited       = "rate_limited"
	CodeCanceled          = "canceled"
	CodeInternal          = "internal_error"
)

// ErrBadRequest marks malformed input that no domain package rejected.
var ErrBadRequest = errors.New("bad request")

// ErrNotFound marks a missing resource.
var ErrNotFound = errors.New("not found")

// ErrRateLimited rejects actions sent faster than the configured interval.
var ErrRateLimited = errors.New("too many actions, slow down")

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Classify returns the HTTP status and code for err.
func Classify(err error) (int, string) {
	var status *backend.StatusError
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, backend.ErrValidation),
		errors.Is(err, mystery.ErrUnknownAnswer),
		errors.Is(err, reward.ErrUnknownKind):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, lightcurve.ErrMissingHeader),
		errors.Is(err, lightcurve.ErrMissingFluxColumn),
		errors.Is(err, lightcurve.ErrNoRows),
		errors.Is(err, backend.ErrEmptyLightCurve):
		return http.StatusBadRequest, CodeInvalidCSV
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, CodeRateLimited
	case errors.Is(err, engine.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, engine.ErrMysteryUnavailable),
		errors.Is(err, engine.ErrAlreadyJudged),
		errors.Is(err, engine.ErrNotJudged),
		errors.Is(err, engine.ErrClueLocked):
		return http.StatusConflict, CodeConflict
	case errors.As(err, &status),
		errors.Is(err, backend.ErrPredictionFailed),
		errors.Is(err, backend.ErrNotConfigured):
		return http.StatusBadGateway, CodeBackend
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeCanceled
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// Body builds the error body for err. Internal errors do not leak details.
func Body(err error) (int, ErrorBody) {
	status, code := Classify(err)
	msg := err.Error()
	if code == CodeInternal {
		msg = "internal server error"
	}
	return status, ErrorBody{Error: code, Message: msg}
}

// RespondError aborts the request with the mapped error.
func RespondError(c *gin.Context, err error) {
	status, body := Body(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// RespondOK writes payload with 200.
func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
