package httpapi

import (
	"net/http"
	"strings"

	appNegotiation "github.com/homematch/negotiation-engine/internal/application/negotiation"
)

type createNegotiationRequest struct {
	PairingID string  `json:"pairingId"`
	Amount    int64   `json:"amount"`
	Note      *string `json:"note,omitempty"`
}

type offerRequest struct {
	Amount int64   `json:"amount"`
	Note   *string `json:"note,omitempty"`
}

type noteRequest struct {
	Note *string `json:"note,omitempty"`
}

type annotateRequest struct {
	Note string `json:"note"`
}

func (s *Server) createNegotiation(w http.ResponseWriter, r *http.Request) {
	var req createNegotiationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	req.PairingID = strings.TrimSpace(req.PairingID)
	if req.PairingID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "pairingId required")
		return
	}
	res, err := s.negotiationSvc.Create(r.Context(), appNegotiation.CreateInput{
		PairingID:   req.PairingID,
		RequesterID: participantFromContext(r.Context()),
		Amount:      req.Amount,
		Note:        req.Note,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	respondJSON(w, status, res.Negotiation)
}

func (s *Server) getNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	h, err := s.negotiationSvc.Get(r.Context(), id, participantFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h)
}

func (s *Server) getNegotiationByPairing(w http.ResponseWriter, r *http.Request) {
	h, err := s.negotiationSvc.GetByPairing(r.Context(), chiParam(r, "pairingId"), participantFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h)
}

func (s *Server) submitOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	var req offerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	n, err := s.negotiationSvc.SubmitOffer(r.Context(), id, participantFromContext(r.Context()), req.Amount, req.Note)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) acceptNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	req, ok := decodeOptionalNote(w, r)
	if !ok {
		return
	}
	n, err := s.negotiationSvc.Accept(r.Context(), id, participantFromContext(r.Context()), req.Note)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) rejectNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	req, ok := decodeOptionalNote(w, r)
	if !ok {
		return
	}
	n, err := s.negotiationSvc.Reject(r.Context(), id, participantFromContext(r.Context()), req.Note)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) annotateNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	var req annotateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	n, err := s.negotiationSvc.Annotate(r.Context(), id, participantFromContext(r.Context()), req.Note)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// decodeOptionalNote accepts an empty body for accept and reject.
func decodeOptionalNote(w http.ResponseWriter, r *http.Request) (noteRequest, bool) {
	var req noteRequest
	if r.ContentLength == 0 {
		return req, true
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return req, false
	}
	return req, true
}
