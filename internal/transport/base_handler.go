package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	appErrors "github.com/frahmantamala/account-admin/internal"
	"github.com/frahmantamala/account-admin/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes a plain error response for failures raised by the
// transport itself (bad JSON, bad path parameters).
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	code := appErrors.ErrCodeValidationFailed
	errType := appErrors.ErrorTypeValidation
	if status >= http.StatusInternalServerError {
		code, errType = "INTERNAL_ERROR", appErrors.ErrorTypeInternal
	}
	h.writeAppError(w, &appErrors.AppError{
		Type:       errType,
		Code:       code,
		Message:    message,
		StatusCode: status,
	})
}

// HandleServiceError maps a service error to its HTTP status and body.
// Anything that is not an AppError is reported as an opaque 500.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	appErr, ok := appErrors.IsAppError(err)
	if !ok {
		h.Logger.Error("unhandled service error", "error", err)
		appErr = appErrors.NewInternalError("internal server error", err)
	}

	switch {
	case appErr.StatusCode >= http.StatusInternalServerError:
		h.Logger.Error("service error", "code", appErr.Code, "error", appErr)
	default:
		h.Logger.Debug("request rejected", "status", appErr.StatusCode, "code", appErr.Code)
	}
	h.writeAppError(w, appErr)
}

func (h *BaseHandler) writeAppError(w http.ResponseWriter, appErr *appErrors.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	h.WriteJSON(w, status, body)
}

// DecodeJSON decodes the request body into dst, writing a 400 on failure.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// PathInt64 parses a chi URL parameter as int64.
func (h *BaseHandler) PathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// ParseIDList parses "1,2,3" into ids, ignoring blanks.
func ParseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ""
	}

	return authHeader[7:]
}
