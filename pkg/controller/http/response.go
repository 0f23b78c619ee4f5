package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/utils/errutil"
	"github.com/ensura-lab/ensura/pkg/utils/safe"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

// handleError maps domain sentinel errors to HTTP responses. Unrecognized
// errors become 500 with the request ID as correlation handle and no
// internal detail in the body.
func (s *Server) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, types.ErrValidation):
		respondJSON(ctx, w, http.StatusBadRequest, errorResponse{Error: err.Error()})

	case errors.Is(err, types.ErrSessionNotFound):
		respondJSON(ctx, w, http.StatusNotFound, errorResponse{Error: "session not found"})

	case errors.Is(err, types.ErrAdmissionRejected):
		writeRateLimitHeaders(w, err)
		respondJSON(ctx, w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})

	case errors.Is(err, types.ErrCapabilityUnavailable), errors.Is(err, types.ErrKnowledgeNotReady):
		errutil.Handle(ctx, err, "upstream capability unavailable")
		respondJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable"})

	default:
		errutil.Handle(ctx, err, "unhandled request error")
		respondJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			Error:     "internal server error",
			RequestID: middleware.GetReqID(ctx),
		})
	}
}

// writeRateLimitHeaders extracts the limiter decision attached to an
// admission error and renders the standard rate limit headers.
func writeRateLimitHeaders(w http.ResponseWriter, err error) {
	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return
	}
	values := ge.Values()

	if v, ok := values[types.RetryAfterKey].(time.Duration); ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(v.Seconds()))))
	}
	if v, ok := values[types.RateLimitKey].(int); ok {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(v))
	}
	if v, ok := values[types.RateRemainingKey].(float64); ok {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(v)))
	}
	if v, ok := values[types.RateResetKey].(time.Time); ok {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(v.Unix(), 10))
	}
}

func setRateLimitHeaders(w http.ResponseWriter, state model.RateLimitState) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(state.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(int(state.Remaining)))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(state.ResetAt.Unix(), 10))
}

// clientKey identifies the caller for rate limiting: the first hop of
// X-Forwarded-For when present, otherwise the remote address without port.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return goerr.Wrap(types.ErrValidation, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
