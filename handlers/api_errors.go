package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/camden-git/imagestudio/ai"
	"github.com/camden-git/imagestudio/services"
	"github.com/camden-git/imagestudio/transform"
)

// error codes
const (
	CodeValidation   = "validation_error"
	CodeBadRequest   = "bad_request"
	CodeUnauthorized = "unauthorized"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeUpstream     = "upstream_error"
	CodeBusy         = "busy"
	CodeInternal     = "internal_error"
)

// APIErrorDetail represents a single error in the standardized error response.
type APIErrorDetail struct {
	Code   string `json:"code"`
	Status string `json:"status"`
	Detail string `json:"detail"`
	Field  string `json:"field,omitempty"`
}

// APIErrorResponse represents the standardized error response body.
type APIErrorResponse struct {
	Errors []APIErrorDetail `json:"errors"`
}

// WriteAPIError writes a standardized error response with the given HTTP status, code, and detail.
func WriteAPIError(w http.ResponseWriter, httpStatus int, code string, detail string) {
	writeAPIErrors(w, httpStatus, []APIErrorDetail{{
		Code:   code,
		Status: strconv.Itoa(httpStatus),
		Detail: detail,
	}})
}

// WriteValidationError writes one entry per rejected field with HTTP 400.
func WriteValidationError(w http.ResponseWriter, verr *transform.ValidationError) {
	details := make([]APIErrorDetail, len(verr.Errors))
	for i, fe := range verr.Errors {
		details[i] = APIErrorDetail{
			Code:   CodeValidation,
			Status: strconv.Itoa(http.StatusBadRequest),
			Detail: fe.Message,
			Field:  fe.Field,
		}
	}
	writeAPIErrors(w, http.StatusBadRequest, details)
}

func writeAPIErrors(w http.ResponseWriter, httpStatus int, details []APIErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(APIErrorResponse{Errors: details})
}

// writeServiceError maps service and domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *transform.ValidationError
	var upstream *services.UpstreamError
	switch {
	case errors.As(err, &verr):
		WriteValidationError(w, verr)
	case errors.Is(err, services.ErrNotFound):
		WriteAPIError(w, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidInput):
		WriteAPIError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, services.ErrForbidden):
		WriteAPIError(w, http.StatusForbidden, CodeForbidden, err.Error())
	case errors.Is(err, services.ErrBusy):
		w.Header().Set("Retry-After", "1")
		WriteAPIError(w, http.StatusServiceUnavailable, CodeBusy, "too many transforms in progress, retry shortly")
	case errors.Is(err, ai.ErrNotConfigured):
		WriteAPIError(w, http.StatusServiceUnavailable, CodeUpstream, err.Error())
	case errors.As(err, &upstream):
		WriteAPIError(w, http.StatusBadGateway, CodeUpstream, err.Error())
	default:
		logrus.WithField("path", r.URL.Path).WithError(err).Error("request failed")
		WriteAPIError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
