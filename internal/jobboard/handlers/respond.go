package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// payload is a JSON response body.
type payload map[string]interface{}

// errorBody is the body of every failed request.
type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeSuccess writes body with success set.
func writeSuccess(w http.ResponseWriter, status int, body payload) {
	body["success"] = true
	writeJSON(w, status, body)
}

// mapServiceError converts service errors to an HTTP status, a stable code
// and the message shown to clients.
func mapServiceError(err error) (int, string, string) {
	code := e.Code(err)
	switch code {
	case e.CodeInvalidInput:
		return http.StatusBadRequest, code, err.Error()
	case e.CodeUnauthenticated, e.CodeInvalidCredentials:
		return http.StatusUnauthorized, code, err.Error()
	case e.CodeForbidden, e.CodeRoleMismatch:
		return http.StatusForbidden, code, err.Error()
	case e.CodeNotFound:
		return http.StatusNotFound, code, err.Error()
	case e.CodeConflict, e.CodeInvalidTransition:
		return http.StatusConflict, code, err.Error()
	default:
		return http.StatusInternalServerError, e.CodeInternal, "internal server error"
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := mapServiceError(err)
	metrics.ServiceErrors.WithLabelValues(code).Inc()
	if status == http.StatusInternalServerError {
		a.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// routingErrorHandler answers unmatched routes in the same error shape as
// the handlers.
func routingErrorHandler(_ context.Context, _ *runtime.ServeMux, _ runtime.Marshaler, w http.ResponseWriter, _ *http.Request, status int) {
	code, msg := e.CodeNotFound, "route not found"
	switch status {
	case http.StatusMethodNotAllowed:
		code, msg = "METHOD_NOT_ALLOWED", "method not allowed"
	case http.StatusBadRequest:
		code, msg = e.CodeInvalidInput, "malformed request path"
	}
	metrics.ServiceErrors.WithLabelValues(code).Inc()
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}
