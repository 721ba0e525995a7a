package pipeline

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/imrishuroy/orders-service/internal/apperr"
	"github.com/imrishuroy/orders-service/internal/validation"
)

// Response is what the HTTP boundary writes back.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// responseHeaders returns the headers for stage. Every stage except prod
// allows any origin.
func responseHeaders(stage string) map[string]string {
	h := map[string]string{"Content-Type": "application/json"}
	if !strings.EqualFold(stage, "prod") {
		h["Access-Control-Allow-Origin"] = "*"
	}
	return h
}

func cloneHeaders(h map[string]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// errorResponse maps err to a status code and a body that carries no store
// detail.
func errorResponse(err error, headers map[string]string) Response {
	status := http.StatusInternalServerError
	body := errorBody{Error: "internal_error", Message: "An internal error occurred"}

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		body = errorBody{Error: "validation_failed", Message: "request validation failed"}
		var verr *validation.Error
		if errors.As(err, &verr) {
			body.Message = verr.Reason
			body.Path = verr.Path
		}
	case apperr.KindConflict:
		status = http.StatusConflict
		body = errorBody{Error: "request_in_progress", Message: "An identical request is in progress, retry later"}
	}

	raw, mErr := json.Marshal(body)
	if mErr != nil {
		raw = []byte(`{"error":"internal_error","message":"An internal error occurred"}`)
	}
	return Response{StatusCode: status, Headers: cloneHeaders(headers), Body: raw}
}
