package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cloo-solutions/vdoc/internal/domain"
	"github.com/cloo-solutions/vdoc/internal/service"
)

// StatusClientClosedRequest is returned when the caller went away before the
// pipeline finished.
const StatusClientClosedRequest = 499

// RAGResponse is the success envelope of a RAG query.
type RAGResponse struct {
	Query           string   `json:"query"`
	Response        string   `json:"response"`
	RetrievedChunks []string `json:"retrieved_chunks"`
}

// SuccessResponse wraps non-RAG API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// ErrorWithCode writes an error envelope carrying a domain error code.
func ErrorWithCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set(ErrorCodeHeader, code)
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeGeneratorQuota:
		return http.StatusTooManyRequests
	case domain.ErrCodeGeneratorUnavailable, domain.ErrCodeGeneratorMalformed, domain.ErrCodeGeneratorRejected:
		return http.StatusBadGateway
	case domain.ErrCodeGeneratorTimeout:
		return http.StatusGatewayTimeout
	case domain.ErrCodeIndexUnavailable:
		return http.StatusServiceUnavailable
	case domain.ErrCodeCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCodeHeader carries the domain error code of a failed request so that
// middleware can log and tag it without decoding the body.
const ErrorCodeHeader = "X-Error-Code"

// ErrorEnvelope builds the failure body for err.
func ErrorEnvelope(err error) ErrorResponse {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return ErrorResponse{Error: domainErr.Description(), Code: domainErr.Code}
	}
	return ErrorResponse{Error: err.Error(), Code: domain.ErrCodeInternal}
}

// HandleError writes an appropriate error response based on the error type
func HandleError(w http.ResponseWriter, err error) {
	body := ErrorEnvelope(err)
	ErrorWithCode(w, DomainErrorToHTTP(err), body.Code, body.Error)
}

// Envelope converts a pipeline result into exactly one of the success or
// failure bodies together with its HTTP status.
func Envelope(res *service.Result) (int, interface{}) {
	if !res.OK() {
		err := res.Err
		if err == nil {
			err = domain.ErrInternal
		}
		return DomainErrorToHTTP(err), ErrorEnvelope(err)
	}

	chunks := res.RetrievedChunks
	if chunks == nil {
		chunks = []string{}
	}
	return http.StatusOK, RAGResponse{
		Query:           res.Query,
		Response:        res.Answer,
		RetrievedChunks: chunks,
	}
}

// WriteResult writes the envelope for a pipeline result.
func WriteResult(w http.ResponseWriter, res *service.Result) {
	status, body := Envelope(res)
	if e, ok := body.(ErrorResponse); ok {
		w.Header().Set(ErrorCodeHeader, e.Code)
	}
	JSON(w, status, body)
}
