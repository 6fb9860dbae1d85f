package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"grandlucky-quiz-service/internal/app"
	"grandlucky-quiz-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Handler serves the contest REST API.
type Handler struct {
	selector     *app.QuestionSelector
	arbiter      *app.SubmissionArbiter
	leaderboards *app.LeaderboardService
	rounds       app.RoundStore
	timeout      time.Duration
	now          func() time.Time
}

func NewHandler(selector *app.QuestionSelector, arbiter *app.SubmissionArbiter, leaderboards *app.LeaderboardService, rounds app.RoundStore, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Handler{
		selector:     selector,
		arbiter:      arbiter,
		leaderboards: leaderboards,
		rounds:       rounds,
		timeout:      timeout,
		now:          time.Now,
	}
}

type questionsResponse struct {
	RoundID   string                    `json:"roundId"`
	Lang      string                    `json:"lang"`
	Username  string                    `json:"username"`
	Questions []domain.PreparedQuestion `json:"questions"`
}

type submitRequest struct {
	Username     string             `json:"username"`
	CorrectCount int                `json:"correctCount"`
	TotalTimeMs  int64              `json:"totalTimeMs"`
	Answers      json.RawMessage    `json:"answers,omitempty"`
	TieDecision  domain.TieDecision `json:"tieDecision,omitempty"`
}

// CurrentRound handles GET /api/rounds/current?lang=.
func (h *Handler) CurrentRound(w http.ResponseWriter, r *http.Request) {
	lang := strings.TrimSpace(r.URL.Query().Get("lang"))
	if lang == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: "lang is required", Field: "lang"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	round, err := h.rounds.CurrentRound(ctx, lang, h.now())
	if errors.Is(err, domain.ErrRoundNotFound) {
		writeError(w, http.StatusNotFound, "no open round for "+lang)
		return
	}
	if err != nil {
		slog.Error("failed to load current round", "lang", lang, "error", err)
		writeError(w, http.StatusServiceUnavailable, "round lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, round)
}

// Questions handles GET /api/rounds/{roundID}/questions.
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := app.SelectRequest{
		RoundID:  chi.URLParam(r, "roundID"),
		Lang:     strings.TrimSpace(q.Get("lang")),
		Username: strings.TrimSpace(q.Get("username")),
		Salt:     q.Get("salt"),
	}
	if req.Lang == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: "lang is required", Field: "lang"})
		return
	}
	if req.Username == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: "username is required", Field: "username"})
		return
	}
	if raw := q.Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: "n must be an integer", Field: "n"})
			return
		}
		req.Count = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var questions []domain.PreparedQuestion
	if q.Get("mode") == "balanced" {
		questions = h.selector.SelectBalanced(ctx, req)
	} else {
		questions = h.selector.Select(ctx, req)
	}
	writeJSON(w, http.StatusOK, questionsResponse{
		RoundID:   req.RoundID,
		Lang:      req.Lang,
		Username:  req.Username,
		Questions: questions,
	})
}

// Submit handles POST /api/rounds/{roundID}/submissions.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	in := domain.SubmissionInput{
		Username:     body.Username,
		RoundID:      chi.URLParam(r, "roundID"),
		CorrectCount: body.CorrectCount,
		TotalTimeMs:  body.TotalTimeMs,
		Answers:      body.Answers,
		TieDecision:  body.TieDecision,
	}
	out, err := h.arbiter.Submit(ctx, in)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	switch out.Status {
	case domain.OutcomeFinalized:
		if err := h.leaderboards.Refresh(ctx, in.RoundID); err != nil {
			slog.Warn("leaderboard refresh failed", "round_id", in.RoundID, "error", err)
		}
		writeJSON(w, http.StatusCreated, out)
	case domain.OutcomeTiePending:
		writeJSON(w, http.StatusConflict, out)
	default:
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: verr.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrStore):
		slog.Error("submission store failure", "error", err)
		writeError(w, http.StatusServiceUnavailable, "submission could not be recorded, please retry")
	default:
		slog.Error("submission failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// Leaderboard handles GET /api/rounds/{roundID}/leaderboard.
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	roundID := chi.URLParam(r, "roundID")
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	lb, err := h.leaderboards.Get(ctx, roundID)
	if err != nil {
		slog.Error("failed to load leaderboard", "round_id", roundID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, lb)
}
