package handlers

import (
	"net/http"
)

// handleHealth is the liveness probe
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if h.Hub != nil {
		resp.Clients = h.Hub.ClientCount()
	}
	respondOK(w, resp)
}

// handleGetStandings returns the ranked color leaderboard, computed fresh
func (h *Handlers) handleGetStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.Standings.ComputeStandings(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, standings)
}

// handleGetColorBreakdown lists the entries behind one color's total
func (h *Handlers) handleGetColorBreakdown(w http.ResponseWriter, r *http.Request) {
	colorID, err := parseIntParam(r, "colorID")
	if err != nil {
		respondError(w, err)
		return
	}

	rows, err := h.Standings.GetColorBreakdown(r.Context(), colorID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, rows)
}

// handleListMatches lists matches, optionally for one event
func (h *Handlers) handleListMatches(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseOptionalIntQuery(r, "event_id")
	if err != nil {
		respondError(w, err)
		return
	}

	matches, err := h.Matches.ListMatches(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, matches)
}
