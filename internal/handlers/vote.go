package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/skip2/go-qrcode"
)

const qrSize = 256

// voterKey resolves the caller's voter identity
func (h *Handlers) voterKey(r *http.Request) (string, error) {
	key, err := h.Keys.Resolve(r)
	if err != nil {
		return "", Unauthorized("Invalid voter token: " + err.Error())
	}
	return key, nil
}

// handleCastVote handles ballot submissions. Gate refusals answer 409 with a
// reason code; accepted ballots answer 200.
func (h *Handlers) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req VoteSubmitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	key, err := h.voterKey(r)
	if err != nil {
		respondError(w, err)
		return
	}

	outcome, err := h.Voting.CastVote(r.Context(), req.AthleteID, req.EventID, key)
	if err != nil {
		respondError(w, err)
		return
	}
	if !outcome.Accepted {
		respondError(w, DenialError(outcome.Reason))
		return
	}

	respondOK(w, VoteResponse{Accepted: true, Ballot: outcome.Ballot})
}

// handleGetEligibility runs the vote gate for the caller without casting
func (h *Handlers) handleGetEligibility(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}

	key, err := h.voterKey(r)
	if err != nil {
		respondError(w, err)
		return
	}

	outcome, err := h.Voting.Authorize(r.Context(), eventID, key)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := EligibilityResponse{Allowed: outcome.Accepted}
	if !outcome.Accepted {
		resp.Reason = string(outcome.Reason)
		resp.Message = outcome.Reason.Message()
	}
	respondOK(w, resp)
}

// handleGetPublicVotes serves live vote totals when the event shows realtime
// results. Organizers always see them.
func (h *Handlers) handleGetPublicVotes(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}

	if !h.Auth.GetSessionFromRequest(r) {
		setting, err := h.Settings.EffectiveVoteSettings(r.Context(), eventID)
		if err != nil {
			respondError(w, err)
			return
		}
		if !setting.ShowRealtimeResults {
			respondError(w, ErrResultsHidden)
			return
		}
	}

	h.respondVoteSummary(w, r, eventID)
}

func (h *Handlers) respondVoteSummary(w http.ResponseWriter, r *http.Request, eventID int) {
	summaries, err := h.Voting.GetVoteSummary(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}

	total := 0
	for _, s := range summaries {
		total += s.TotalVotes
	}
	respondOK(w, VoteSummaryResponse{EventID: eventID, TotalVotes: total, Summaries: summaries})
}

// handleGetEffectiveVoteSettings returns the settings that govern an event
func (h *Handlers) handleGetEffectiveVoteSettings(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := h.Settings.GetVoteSettings(r.Context(), &eventID); err != nil {
		respondError(w, err)
		return
	}
	setting, err := h.Settings.EffectiveVoteSettings(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, setting)
}

// handleGetVoteQR renders a PNG QR code linking to the event's voting page
func (h *Handlers) handleGetVoteQR(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}

	// Unknown events must not get a printable code
	if _, err := h.Settings.GetVoteSettings(r.Context(), &eventID); err != nil {
		respondError(w, err)
		return
	}

	png, err := qrcode.Encode(h.voteURL(eventID), qrcode.Medium, qrSize)
	if err != nil {
		respondError(w, InternalError(err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

func (h *Handlers) voteURL(eventID int) string {
	return fmt.Sprintf("%s/vote/%d", strings.TrimRight(h.BaseURL, "/"), eventID)
}

// handleGetPopularity lists athletes by total votes across the meet
func (h *Handlers) handleGetPopularity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, BadRequest("Invalid limit query parameter"))
			return
		}
		limit = n
	}

	leaders, err := h.Voting.GetPopularityLeaders(r.Context(), limit)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, leaders)
}
