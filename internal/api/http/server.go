package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	appNegotiation "github.com/homematch/negotiation-engine/internal/application/negotiation"
	"github.com/homematch/negotiation-engine/internal/domain/negotiation"
	"github.com/homematch/negotiation-engine/internal/infrastructure/sse"
)

// DefaultParticipantHeader carries the caller identity set by the upstream gateway.
const DefaultParticipantHeader = "X-Participant-ID"

// Server holds dependencies for HTTP handlers.
type Server struct {
	negotiationSvc    *appNegotiation.Service
	sseHub            *sse.Hub
	metrics           http.Handler
	participantHeader string
	logger            zerolog.Logger
}

// NewServer wires the HTTP surface. metrics may be nil to disable /metrics.
func NewServer(
	negotiationSvc *appNegotiation.Service,
	sseHub *sse.Hub,
	metrics http.Handler,
	participantHeader string,
	logger zerolog.Logger,
) *Server {
	if participantHeader == "" {
		participantHeader = DefaultParticipantHeader
	}
	return &Server{
		negotiationSvc:    negotiationSvc,
		sseHub:            sseHub,
		metrics:           metrics,
		participantHeader: participantHeader,
		logger:            logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.requireParticipant)
		timeout := middleware.Timeout(30 * time.Second)

		r.Route("/negotiations", func(r chi.Router) {
			// The stream outlives the request timeout.
			r.Get("/stream", s.streamNegotiations)

			r.Group(func(r chi.Router) {
				r.Use(timeout)
				r.Post("/", s.createNegotiation)
				r.Get("/{negotiationId}", s.getNegotiation)
				r.Post("/{negotiationId}/offers", s.submitOffer)
				r.Post("/{negotiationId}/accept", s.acceptNegotiation)
				r.Post("/{negotiationId}/reject", s.rejectNegotiation)
				r.Post("/{negotiationId}/annotations", s.annotateNegotiation)
			})
		})

		r.With(timeout).Get("/pairings/{pairingId}/negotiation", s.getNegotiationByPairing)
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondServiceError maps reason-coded negotiation errors to statuses.
// Anything else is an infrastructure fault.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var negErr *negotiation.Error
	if !errors.As(err, &negErr) {
		hlog.FromRequest(r).Error().Err(err).Msg("negotiation operation failed")
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal error")
		return
	}
	respondError(w, statusForCode(negErr.Code), string(negErr.Code), negErr.Message)
}

func statusForCode(code negotiation.Code) int {
	switch code {
	case negotiation.CodeAmountInvalid, negotiation.CodeNoteRequired:
		return http.StatusBadRequest
	case negotiation.CodeNotParticipant:
		return http.StatusForbidden
	case negotiation.CodeNotFound, negotiation.CodePairingNotFound:
		return http.StatusNotFound
	case negotiation.CodeInvalidTransition,
		negotiation.CodeConcurrencyExhausted,
		negotiation.CodeVersionConflict,
		negotiation.CodePairingInactive,
		negotiation.CodeAlreadyExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func chiParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
