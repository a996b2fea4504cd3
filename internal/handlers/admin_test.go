package handlers_test

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/abrezinsky/sportsmeet/internal/handlers"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository/mock"
	"github.com/abrezinsky/sportsmeet/internal/services"
	"github.com/abrezinsky/sportsmeet/internal/testutil"
)

func (s *testSetup) recordResult(t *testing.T, eventID, colorID, rank int) models.ResultEntry {
	t.Helper()
	rec := s.admin(t, http.MethodPost, "/api/admin/results", handlers.ResultRequest{
		EventID: eventID, ColorID: colorID, Rank: rank,
	})
	expectStatus(t, rec, http.StatusOK)
	return decode[models.ResultEntry](t, rec)
}

func (s *testSetup) standings(t *testing.T) map[string]int {
	t.Helper()
	rec := s.request(t, http.MethodGet, "/api/standings", nil)
	expectStatus(t, rec, http.StatusOK)
	totals := map[string]int{}
	for _, st := range decode[[]models.Standing](t, rec) {
		totals[st.Name] = st.TotalScore
	}
	return totals
}

// ==================== Result Ledger ====================

func TestRecordResult_CorrectionReplacesPoints(t *testing.T) {
	setup := newTestSetup(t)

	entry := setup.recordResult(t, setup.meet.Sprint, setup.meet.Red, 1)
	if entry.Points != 10 || entry.RecordedBy != "organizer" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	setup.recordResult(t, setup.meet.Sprint, setup.meet.Red, 2)

	if got := setup.standings(t)["Red"]; got != 8 {
		t.Errorf("expected Red to hold 8 points after the correction, got %d", got)
	}
}

func TestRecordResult_Validation(t *testing.T) {
	setup := newTestSetup(t)

	tests := []struct {
		name   string
		body   handlers.ResultRequest
		status int
		code   string
	}{
		{"zero rank", handlers.ResultRequest{EventID: setup.meet.Sprint, ColorID: setup.meet.Red, Rank: 0}, http.StatusBadRequest, handlers.ErrCodeValidation},
		{"unknown event", handlers.ResultRequest{EventID: 404, ColorID: setup.meet.Red, Rank: 1}, http.StatusNotFound, handlers.ErrCodeNotFound},
		{"unknown color", handlers.ResultRequest{EventID: setup.meet.Sprint, ColorID: 404, Rank: 1}, http.StatusNotFound, handlers.ErrCodeNotFound},
		{"unknown athlete", handlers.ResultRequest{EventID: setup.meet.Sprint, ColorID: setup.meet.Red, AthleteID: intp(404), Rank: 1}, http.StatusNotFound, handlers.ErrCodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := setup.admin(t, http.MethodPost, "/api/admin/results", tt.body)
			expectCode(t, rec, tt.status, tt.code)
		})
	}
}

func TestRemoveResult(t *testing.T) {
	setup := newTestSetup(t)
	setup.recordResult(t, setup.meet.LongJump, setup.meet.Green, 1)

	path := fmt.Sprintf("/api/admin/results/%d/%d", setup.meet.LongJump, setup.meet.Green)
	rec := setup.admin(t, http.MethodDelete, path, nil)
	expectStatus(t, rec, http.StatusOK)
	if removed := decode[models.ResultEntry](t, rec); removed.Points != 10 {
		t.Errorf("expected the removed entry's points, got %+v", removed)
	}
	if got := setup.standings(t)["Green"]; got != 0 {
		t.Errorf("expected Green back to 0, got %d", got)
	}

	rec = setup.admin(t, http.MethodDelete, path, nil)
	expectCode(t, rec, http.StatusNotFound, handlers.ErrCodeNotFound)

	rec = setup.admin(t, http.MethodDelete, "/api/admin/results/x/1", nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestListEventResults(t *testing.T) {
	setup := newTestSetup(t)
	setup.recordResult(t, setup.meet.Sprint, setup.meet.Red, 1)
	setup.recordResult(t, setup.meet.Sprint, setup.meet.Blue, 2)

	rec := setup.admin(t, http.MethodGet, fmt.Sprintf("/api/admin/events/%d/results", setup.meet.Sprint), nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]models.ResultEntry](t, rec); len(got) != 2 {
		t.Errorf("expected 2 entries, got %d", len(got))
	}
}

// ==================== Scoring Rules ====================

func TestScoringRules_PutThenRescore(t *testing.T) {
	setup := newTestSetup(t)
	setup.recordResult(t, setup.meet.Sprint, setup.meet.Yellow, 1)

	rulesPath := fmt.Sprintf("/api/admin/events/%d/scoring-rules", setup.meet.Sprint)
	rec := setup.admin(t, http.MethodPut, rulesPath, handlers.ScoringRulesRequest{
		Rules: []handlers.ScoringRuleInput{{Rank: 1, Points: 25}, {Rank: 2, Points: 15}},
	})
	expectStatus(t, rec, http.StatusOK)
	got := decode[handlers.ScoringRulesResponse](t, rec)
	if got.EventID == nil || *got.EventID != setup.meet.Sprint || len(got.Rules) != 2 {
		t.Fatalf("unexpected rules response: %+v", got)
	}

	// Existing entries keep their recorded points until rescored
	if total := setup.standings(t)["Yellow"]; total != 10 {
		t.Errorf("expected Yellow to keep 10 before rescore, got %d", total)
	}

	rec = setup.admin(t, http.MethodPost, fmt.Sprintf("/api/admin/events/%d/rescore", setup.meet.Sprint), nil)
	expectStatus(t, rec, http.StatusOK)
	report := decode[services.RescoreReport](t, rec)
	if report.Rescored != 1 || report.Delta != 15 {
		t.Errorf("unexpected rescore report: %+v", report)
	}
	if total := setup.standings(t)["Yellow"]; total != 25 {
		t.Errorf("expected Yellow at 25 after rescore, got %d", total)
	}
}

func TestScoringRules_GlobalScopeAndValidation(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.admin(t, http.MethodGet, "/api/admin/scoring-rules", nil)
	expectStatus(t, rec, http.StatusOK)
	got := decode[handlers.ScoringRulesResponse](t, rec)
	if got.EventID != nil || len(got.Rules) != len(testutil.DefaultRules) {
		t.Errorf("expected the seeded global rules, got %+v", got)
	}

	tests := []struct {
		name  string
		rules []handlers.ScoringRuleInput
	}{
		{"duplicate rank", []handlers.ScoringRuleInput{{Rank: 1, Points: 5}, {Rank: 1, Points: 3}}},
		{"negative points", []handlers.ScoringRuleInput{{Rank: 1, Points: -1}}},
		{"zero rank", []handlers.ScoringRuleInput{{Rank: 0, Points: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := setup.admin(t, http.MethodPut, "/api/admin/scoring-rules", handlers.ScoringRulesRequest{Rules: tt.rules})
			expectCode(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)
		})
	}

	rec = setup.admin(t, http.MethodGet, "/api/admin/events/404/scoring-rules", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

// ==================== Vote Settings ====================

func TestVoteSettings_PutAndGet(t *testing.T) {
	setup := newTestSetup(t)
	path := fmt.Sprintf("/api/admin/events/%d/vote-settings", setup.meet.RelayFinal)

	rec := setup.admin(t, http.MethodGet, path, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[models.VoteSetting](t, rec); got.VotingEnabled {
		t.Error("expected voting closed by default")
	}

	start := time.Date(2026, 5, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	rec = setup.admin(t, http.MethodPut, path, handlers.VoteSettingsRequest{
		VotingEnabled:       true,
		VotingStart:         &start,
		VotingEnd:           &end,
		MaxVotesPerUser:     3,
		ShowRealtimeResults: true,
	})
	expectStatus(t, rec, http.StatusOK)
	got := decode[models.VoteSetting](t, rec)
	if !got.VotingEnabled || got.MaxVotesPerUser != 3 || got.VotingEnd == nil || !got.VotingEnd.Equal(end) {
		t.Errorf("unexpected stored setting: %+v", got)
	}

	rec = setup.admin(t, http.MethodPut, "/api/admin/vote-settings", handlers.VoteSettingsRequest{
		VotingEnabled: true, VotingStart: &end, VotingEnd: &start, MaxVotesPerUser: 1,
	})
	expectCode(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)

	rec = setup.admin(t, http.MethodPut, "/api/admin/vote-settings", handlers.VoteSettingsRequest{MaxVotesPerUser: 0})
	expectCode(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)
}

func TestVotingTimerAndControl(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.admin(t, http.MethodPost, "/api/admin/voting-timer", handlers.VotingTimerRequest{Minutes: 61})
	expectCode(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)

	rec = setup.admin(t, http.MethodPost, "/api/admin/voting-timer", handlers.VotingTimerRequest{Minutes: 10})
	expectStatus(t, rec, http.StatusOK)
	timer := decode[handlers.VotingTimerResponse](t, rec)
	closeTime, err := time.Parse(time.RFC3339, timer.CloseTime)
	if err != nil {
		t.Fatalf("close_time is not RFC3339: %v", err)
	}
	if until := time.Until(closeTime); until < 9*time.Minute || until > 11*time.Minute {
		t.Errorf("expected close time about 10 minutes out, got %v", until)
	}

	vote := handlers.VoteSubmitRequest{AthleteID: setup.meet.AthleteX, EventID: setup.meet.LongJump}
	expectStatus(t, setup.request(t, http.MethodPost, "/api/votes", vote), http.StatusOK)

	rec = setup.admin(t, http.MethodPost, "/api/admin/voting-control", handlers.VotingStatusRequest{Open: false})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[handlers.VotingStatusResponse](t, rec); got.Open {
		t.Error("expected open=false in response")
	}
	expectCode(t, setup.request(t, http.MethodPost, "/api/votes", vote, fromAddr("198.51.100.3:1")),
		http.StatusConflict, handlers.ErrCodeVotingDisabled)

	rec = setup.admin(t, http.MethodPost, "/api/admin/voting-control", handlers.VotingStatusRequest{EventID: intp(404), Open: true})
	expectStatus(t, rec, http.StatusNotFound)
}

// ==================== Vote Results ====================

func TestAwardWinnerAndVotes(t *testing.T) {
	setup := newTestSetup(t)
	testutil.OpenVoting(t, setup.repo, &setup.meet.RelayFinal, 1)

	for i, athlete := range []int{setup.meet.AthleteX, setup.meet.AthleteX, setup.meet.AthleteY} {
		expectStatus(t, setup.request(t, http.MethodPost, "/api/votes",
			handlers.VoteSubmitRequest{AthleteID: athlete, EventID: setup.meet.RelayFinal},
			fromAddr(fmt.Sprintf("203.0.113.%d:80", i+1))), http.StatusOK)
	}

	rec := setup.admin(t, http.MethodGet, fmt.Sprintf("/api/admin/events/%d/votes", setup.meet.RelayFinal), nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[handlers.VoteSummaryResponse](t, rec); got.TotalVotes != 3 {
		t.Errorf("expected 3 votes, got %d", got.TotalVotes)
	}

	rec = setup.admin(t, http.MethodGet, fmt.Sprintf("/api/admin/events/%d/award-winner", setup.meet.RelayFinal), nil)
	expectStatus(t, rec, http.StatusOK)
	award := decode[services.AwardWinner](t, rec)
	if award.Winner == nil || award.Winner.AthleteID != setup.meet.AthleteX || award.Votes != 2 {
		t.Errorf("unexpected award: %+v", award)
	}
}

// ==================== Integrity ====================

func TestReconcile_RepairsInjectedDrift(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	mockRepo := mock.NewRepository(repo)
	setup := newTestSetupWithRepo(t, repo, mockRepo)
	testutil.OpenVoting(t, repo, &setup.meet.Sprint, 1)

	// The ballot lands but the summary bump fails
	mockRepo.IncrementVoteSummaryError = errors.New("database error")
	expectStatus(t, setup.request(t, http.MethodPost, "/api/votes",
		handlers.VoteSubmitRequest{AthleteID: setup.meet.AthleteY, EventID: setup.meet.Sprint}), http.StatusOK)
	mockRepo.IncrementVoteSummaryError = nil

	rec := setup.admin(t, http.MethodPost, "/api/admin/reconcile", nil)
	expectStatus(t, rec, http.StatusOK)
	report := decode[handlers.ReconcileResponse](t, rec)
	if report.Repaired != 1 || len(report.SummaryDrift) != 1 {
		t.Fatalf("expected one repaired summary, got %+v", report)
	}
	if d := report.SummaryDrift[0]; d.Stored != 0 || d.Expected != 1 {
		t.Errorf("unexpected drift: %+v", d)
	}

	rec = setup.admin(t, http.MethodPost, "/api/admin/reconcile", nil)
	if again := decode[handlers.ReconcileResponse](t, rec); again.Repaired != 0 {
		t.Errorf("expected a clean second pass, got %+v", again)
	}
}

func TestReconcile_RepositoryError(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	mockRepo := mock.NewRepository(repo)
	setup := newTestSetupWithRepo(t, repo, mockRepo)

	mockRepo.RecomputeVoteSummariesError = errors.New("database error")
	rec := setup.admin(t, http.MethodPost, "/api/admin/reconcile", nil)
	expectCode(t, rec, http.StatusInternalServerError, handlers.ErrCodeInternalServer)
}

// ==================== Matches ====================

func TestMatches_FinalLifecycle(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.admin(t, http.MethodPost, "/api/admin/matches", handlers.MatchCreateRequest{
		EventID: setup.meet.RelayFinal, HomeColorID: setup.meet.Red, AwayColorID: setup.meet.Blue,
	})
	expectStatus(t, rec, http.StatusCreated)
	match := decode[models.Match](t, rec)
	if match.Status != models.MatchScheduled {
		t.Fatalf("expected a scheduled match, got %q", match.Status)
	}

	statusPath := fmt.Sprintf("/api/admin/matches/%d/status", match.ID)
	scorePath := fmt.Sprintf("/api/admin/matches/%d/score", match.ID)

	rec = setup.admin(t, http.MethodPut, statusPath, handlers.MatchStatusRequest{Status: "completed"})
	expectCode(t, rec, http.StatusConflict, handlers.ErrCodeConflict)

	expectStatus(t, setup.admin(t, http.MethodPut, statusPath, handlers.MatchStatusRequest{Status: "ongoing"}), http.StatusOK)
	expectStatus(t, setup.admin(t, http.MethodPut, scorePath, handlers.MatchScoreRequest{HomeScore: intp(2), AwayScore: intp(2)}), http.StatusOK)

	rec = setup.admin(t, http.MethodPut, statusPath, handlers.MatchStatusRequest{Status: "completed"})
	expectCode(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)

	expectStatus(t, setup.admin(t, http.MethodPut, scorePath, handlers.MatchScoreRequest{HomeScore: intp(3), AwayScore: intp(2)}), http.StatusOK)
	rec = setup.admin(t, http.MethodPut, statusPath, handlers.MatchStatusRequest{Status: "completed"})
	expectStatus(t, rec, http.StatusOK)

	totals := setup.standings(t)
	if totals["Red"] != 10 || totals["Blue"] != 8 {
		t.Errorf("expected the final to score Red 10 and Blue 8, got %v", totals)
	}

	rec = setup.request(t, http.MethodGet, fmt.Sprintf("/api/matches?event_id=%d", setup.meet.RelayFinal), nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[[]models.Match](t, rec); len(got) != 1 || got[0].Status != models.MatchCompleted {
		t.Errorf("unexpected match list: %+v", got)
	}

	rec = setup.request(t, http.MethodGet, "/api/matches?event_id=x", nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestMatches_Validation(t *testing.T) {
	setup := newTestSetup(t)

	rec := setup.admin(t, http.MethodPost, "/api/admin/matches", handlers.MatchCreateRequest{
		EventID: setup.meet.Sprint, HomeColorID: setup.meet.Red, AwayColorID: setup.meet.Red,
	})
	expectCode(t, rec, http.StatusBadRequest, handlers.ErrCodeValidation)

	rec = setup.admin(t, http.MethodPut, "/api/admin/matches/404/status", handlers.MatchStatusRequest{Status: "ongoing"})
	expectStatus(t, rec, http.StatusNotFound)

	rec = setup.admin(t, http.MethodPut, "/api/admin/matches/1/status", handlers.MatchStatusRequest{Status: "paused"})
	expectStatus(t, rec, http.StatusBadRequest)
}

// ==================== Standings & Export ====================

func TestStandingsAndBreakdown(t *testing.T) {
	setup := newTestSetup(t)
	setup.recordResult(t, setup.meet.Sprint, setup.meet.Blue, 1)
	setup.recordResult(t, setup.meet.LongJump, setup.meet.Blue, 2)

	rec := setup.request(t, http.MethodGet, "/api/standings", nil)
	expectStatus(t, rec, http.StatusOK)
	standings := decode[[]models.Standing](t, rec)
	if len(standings) != 4 || standings[0].Name != "Blue" || standings[0].Rank != 1 || standings[0].Gold != 1 {
		t.Errorf("unexpected leader: %+v", standings[0])
	}

	rec = setup.request(t, http.MethodGet, fmt.Sprintf("/api/standings/%d/breakdown", setup.meet.Blue), nil)
	expectStatus(t, rec, http.StatusOK)
	if rows := decode[[]models.BreakdownRow](t, rec); len(rows) != 2 {
		t.Errorf("expected 2 breakdown rows, got %d", len(rows))
	}

	rec = setup.request(t, http.MethodGet, "/api/standings/404/breakdown", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestExportStandings(t *testing.T) {
	setup := newTestSetup(t)
	setup.recordResult(t, setup.meet.Sprint, setup.meet.Green, 1)

	rec := setup.admin(t, http.MethodGet, "/api/admin/standings/export.xlsx", nil)
	expectStatus(t, rec, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %q", ct)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer wb.Close()

	rows, err := wb.GetRows("Standings")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 5 || rows[1][1] != "Green" {
		t.Errorf("unexpected standings sheet: %v", rows)
	}
}
