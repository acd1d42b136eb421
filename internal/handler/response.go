package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"checkin-service/internal/util"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	SessionID string      `json:"sessionId,omitempty"`
}

func successResponse(r *http.Request, data interface{}, message string) Response {
	return Response{
		Success:   true,
		Data:      data,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
		SessionID: sessionIDFrom(r),
	}
}

func errorResponse(r *http.Request, errMsg, message string) Response {
	return Response{
		Success:   false,
		Error:     errMsg,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
		SessionID: sessionIDFrom(r),
	}
}

func sessionIDFrom(r *http.Request) string {
	if session := SessionFromContext(r.Context()); session != nil {
		return session.ID
	}
	return r.Header.Get(sessionHeader)
}

func respondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		util.Error("Failed to encode JSON response", util.ErrorField(err))
	}
}

func respondWithError(w http.ResponseWriter, r *http.Request, statusCode int, errMsg, message string) {
	util.Warn("HTTP error response",
		util.String("error", errMsg),
		util.Int("status_code", statusCode),
		util.String("path", r.URL.Path),
	)
	respondWithJSON(w, statusCode, errorResponse(r, errMsg, message))
}
