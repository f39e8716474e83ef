package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// DownstreamErrorResponse mirrors the httputil.ErrorResponse structure used by
// storefront itself. It is used to parse structured error bodies from
// downstream HTTP calls.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// detailErrorResponse matches the flat error shape the inventory service
// returns, e.g. {"detail": "Not enough stock available"}.
type detailErrorResponse struct {
	Detail string `json:"detail"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. Both the storefront envelope format and the
// inventory service's {"detail": ...} format are recognized; anything else
// falls back to a generic error carrying the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	return ParseErrorBody(resp.StatusCode, bodyBytes, serviceName)
}

// ParseErrorBody translates an already-read error body into an AppError.
// Callers that need to inspect the body themselves before classifying (the
// inventory client does, to distinguish stock rejections from plain bad
// requests) read it once and delegate the generic mapping here.
func ParseErrorBody(status int, body []byte, serviceName string) error {
	if msg := ErrorMessage(body); msg != "" {
		return mapDownstreamError(status, msg, serviceName)
	}

	// Fallback: unstructured error body.
	return fmt.Errorf("%s returned status %d: %s", serviceName, status, string(body))
}

// ErrorMessage extracts the human-readable message from a downstream error
// body, trying the envelope format first and the flat detail format second.
// It returns "" when neither matches.
func ErrorMessage(body []byte) string {
	var downstream DownstreamErrorResponse
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		return downstream.Error.Message
	}

	var detail detailErrorResponse
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		return detail.Detail
	}

	return ""
}

// mapDownstreamError translates a downstream service's HTTP status code into
// an AppError that preserves the error semantics.
func mapDownstreamError(status int, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		return apperrors.Unavailable(serviceName, fmt.Errorf("%s", message))
	case status >= 500:
		return fmt.Errorf("%s server error (%d): %s", serviceName, status, message)
	default:
		return &apperrors.AppError{
			Code:    "DOWNSTREAM_ERROR",
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors should not be retried; the request itself was rejected.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
