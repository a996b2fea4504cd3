package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// scopeParam reads the optional {eventID} route parameter; absent means the
// meet-wide scope
func scopeParam(r *http.Request) (*int, error) {
	if chi.URLParam(r, "eventID") == "" {
		return nil, nil
	}
	id, err := parseIntParam(r, "eventID")
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ==================== Result Ledger ====================

func (h *Handlers) handleRecordResult(w http.ResponseWriter, r *http.Request) {
	var req ResultRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	entry, err := h.Scoring.RecordResult(r.Context(), services.ResultInput{
		EventID:    req.EventID,
		ColorID:    req.ColorID,
		AthleteID:  req.AthleteID,
		Rank:       req.Rank,
		RecordedBy: req.RecordedBy,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, entry)
}

func (h *Handlers) handleListEventResults(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}

	results, err := h.Scoring.ListEventResults(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, results)
}

func (h *Handlers) handleRemoveResult(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}
	colorID, err := parseIntParam(r, "colorID")
	if err != nil {
		respondError(w, err)
		return
	}

	removed, err := h.Scoring.RemoveResult(r.Context(), eventID, colorID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, removed)
}

func (h *Handlers) handleRescoreEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}

	// The body is optional
	var req RescoreRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, err)
			return
		}
	}

	report, err := h.Scoring.RescoreEvent(r.Context(), eventID, req.RecordedBy)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, report)
}

// ==================== Scoring Rules ====================

func (h *Handlers) handleGetScoringRules(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	rules, err := h.Scoring.ListScoringRules(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ScoringRulesResponse{EventID: scope, Rules: rules})
}

func (h *Handlers) handlePutScoringRules(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req ScoringRulesRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	rules := make([]models.ScoringRule, 0, len(req.Rules))
	for _, in := range req.Rules {
		rules = append(rules, models.ScoringRule{EventID: scope, Rank: in.Rank, Points: in.Points})
	}
	if err := h.Scoring.PutScoringRules(r.Context(), scope, rules); err != nil {
		respondError(w, err)
		return
	}

	stored, err := h.Scoring.ListScoringRules(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, ScoringRulesResponse{EventID: scope, Rules: stored})
}

// ==================== Vote Settings ====================

func (h *Handlers) handleGetVoteSettings(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	setting, err := h.Settings.GetVoteSettings(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, setting)
}

func (h *Handlers) handlePutVoteSettings(w http.ResponseWriter, r *http.Request) {
	scope, err := scopeParam(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var req VoteSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	err = h.Settings.PutVoteSettings(r.Context(), models.VoteSetting{
		EventID:             scope,
		VotingEnabled:       req.VotingEnabled,
		VotingStart:         req.VotingStart,
		VotingEnd:           req.VotingEnd,
		MaxVotesPerUser:     req.MaxVotesPerUser,
		ShowRealtimeResults: req.ShowRealtimeResults,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	setting, err := h.Settings.GetVoteSettings(r.Context(), scope)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, setting)
}

func (h *Handlers) handleSetVotingTimer(w http.ResponseWriter, r *http.Request) {
	var req VotingTimerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	closeTime, err := h.Settings.StartVotingTimer(r.Context(), req.EventID, req.Minutes)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, VotingTimerResponse{
		EventID:   req.EventID,
		CloseTime: closeTime,
		Minutes:   req.Minutes,
	})
}

func (h *Handlers) handleSetVotingStatus(w http.ResponseWriter, r *http.Request) {
	var req VotingStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	var err error
	if req.Open {
		err = h.Settings.OpenVoting(r.Context(), req.EventID)
	} else {
		err = h.Settings.CloseVoting(r.Context(), req.EventID)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, VotingStatusResponse{EventID: req.EventID, Open: req.Open})
}

// ==================== Vote Results ====================

func (h *Handlers) handleGetVotes(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}
	h.respondVoteSummary(w, r, eventID)
}

func (h *Handlers) handleGetAwardWinner(w http.ResponseWriter, r *http.Request) {
	eventID, err := parseIntParam(r, "eventID")
	if err != nil {
		respondError(w, err)
		return
	}

	winner, err := h.Voting.GetAwardWinner(r.Context(), eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, winner)
}

// ==================== Integrity ====================

func (h *Handlers) handleReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.Reconciler.Run(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, ReconcileResponse{
		StartedAt:    report.StartedAt,
		DurationMS:   report.Duration.Milliseconds(),
		Repaired:     report.Repaired(),
		SummaryDrift: report.SummaryDrift,
		ColorDrift:   report.ColorDrift,
	})
}

// ==================== Matches ====================

func (h *Handlers) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	match, err := h.Matches.CreateMatch(r.Context(), services.MatchInput{
		EventID:     req.EventID,
		HomeColorID: req.HomeColorID,
		AwayColorID: req.AwayColorID,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondCreated(w, match)
}

func (h *Handlers) handleTransitionMatch(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req MatchStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	match, err := h.Matches.TransitionMatch(r.Context(), id, models.MatchStatus(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, match)
}

func (h *Handlers) handleUpdateMatchScore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIntParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req MatchScoreRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	match, err := h.Matches.UpdateMatchScore(r.Context(), id, req.HomeScore, req.AwayScore)
	if err != nil {
		respondError(w, err)
		return
	}
	respondOK(w, match)
}

// ==================== Export ====================

func (h *Handlers) handleExportStandings(w http.ResponseWriter, r *http.Request) {
	data, err := h.Standings.ExportStandingsXLSX(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="standings.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
