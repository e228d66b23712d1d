package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"till/internal/core"
)

const (
	defaultPendingLimit   = 50
	maxPendingLimit       = 500
	defaultSummariesLimit = 20
)

type ingestRequest struct {
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

type stagedMessageResponse struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	RawText     string  `json:"raw_text"`
	Kind        string  `json:"kind"`
	Amount      *string `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	IsIncome    *bool   `json:"is_income"`
	Confidence  int     `json:"confidence"`
	Processed   bool    `json:"processed"`
	CreatedAt   string  `json:"created_at"`
}

func toStagedResponse(m core.StagedMessage) stagedMessageResponse {
	resp := stagedMessageResponse{
		ID:          m.ID,
		UserID:      m.UserID,
		RawText:     m.RawText,
		Kind:        string(m.Kind),
		Currency:    m.Currency,
		Description: m.Description,
		IsIncome:    m.IsIncome,
		Confidence:  m.Confidence,
		Processed:   m.Processed,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339),
	}
	if m.Amount != nil {
		amount := core.FormatAmount(*m.Amount)
		resp.Amount = &amount
	}
	return resp
}

func (s *Server) handleIngestMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	staged, err := s.ingest.Ingest(r.Context(), req.UserID, req.Text)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to ingest message", "user_id", req.UserID, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toStagedResponse(*staged))
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultPendingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPendingLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	pending, err := s.storage.FetchUnprocessed(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list pending messages", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list pending messages")
		return
	}

	responses := make([]stagedMessageResponse, len(pending))
	for i, m := range pending {
		responses[i] = toStagedResponse(m)
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": responses})
}

type markProcessedRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleMarkProcessed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req markProcessedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	claimed, err := s.storage.MarkProcessed(r.Context(), req.IDs)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to mark messages processed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to mark messages processed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"claimed": claimed})
}

type summaryResponse struct {
	ID                int64                         `json:"id"`
	PeriodType        string                        `json:"period_type"`
	PeriodName        string                        `json:"period_name"`
	StartDate         string                        `json:"start_date"`
	EndDate           string                        `json:"end_date"`
	TotalIncome       string                        `json:"total_income"`
	TotalExpenses     string                        `json:"total_expenses"`
	NetPosition       string                        `json:"net_position"`
	TransactionCount  int                           `json:"transaction_count"`
	TopCategory       string                        `json:"top_category"`
	TopCategoryAmount string                        `json:"top_category_amount"`
	Breakdown         map[string]core.CategoryStats `json:"breakdown"`
	Insight           string                        `json:"insight"`
}

func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	periodType := core.PeriodType(r.URL.Query().Get("period_type"))
	switch periodType {
	case "", core.PeriodWeekly, core.PeriodMonthly, core.PeriodQuarterly, core.PeriodCustom:
	default:
		writeError(w, http.StatusBadRequest, "unknown period_type")
		return
	}

	limit := defaultSummariesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxPendingLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	summaries, err := s.storage.ListSummaries(r.Context(), periodType, limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list summaries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list summaries")
		return
	}

	responses := make([]summaryResponse, len(summaries))
	for i, sum := range summaries {
		responses[i] = summaryResponse{
			ID:                sum.ID,
			PeriodType:        string(sum.PeriodType),
			PeriodName:        sum.PeriodName,
			StartDate:         sum.Start.Format("2006-01-02"),
			EndDate:           sum.End.Format("2006-01-02"),
			TotalIncome:       core.FormatAmount(sum.TotalIncome),
			TotalExpenses:     core.FormatAmount(sum.TotalExpenses),
			NetPosition:       core.FormatAmount(sum.NetPosition),
			TransactionCount:  sum.TransactionCount,
			TopCategory:       sum.TopCategory,
			TopCategoryAmount: core.FormatAmount(sum.TopCategoryAmount),
			Breakdown:         sum.Breakdown,
			Insight:           sum.Insight,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": responses})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
