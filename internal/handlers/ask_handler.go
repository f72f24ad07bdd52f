// Package handlers contains the HTTP handlers for the API surface.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/PREDICTif/medview/internal/common"
	"github.com/PREDICTif/medview/internal/models"
	"github.com/PREDICTif/medview/internal/pipeline"
)

// AskHandler handles patient question requests
type AskHandler struct {
	controller *pipeline.Controller
	logger     arbor.ILogger
}

// NewAskHandler creates a new ask handler
func NewAskHandler(controller *pipeline.Controller, logger arbor.ILogger) *AskHandler {
	return &AskHandler{
		controller: controller,
		logger:     logger,
	}
}

// askRequest is the POST /api/ask request body
type askRequest struct {
	PatientID   string   `json:"patient_id"`
	Question    string   `json:"question"`
	Medications []string `json:"medications"`
}

// askResponse is the POST /api/ask response body
type askResponse struct {
	Success       bool             `json:"success"`
	RequestID     string           `json:"request_id,omitempty"`
	Answer        string           `json:"answer,omitempty"`
	Citations     []string         `json:"citations,omitempty"`
	Emergency     bool             `json:"emergency"`
	UsedWebSearch bool             `json:"used_web_search"`
	Relevance     *relevanceDetail `json:"relevance,omitempty"`
	Warnings      []string         `json:"warnings,omitempty"`
	Error         string           `json:"error,omitempty"`
}

type relevanceDetail struct {
	Score    float64 `json:"score"`
	Decision string  `json:"decision"`
	Degraded bool    `json:"degraded"`
}

// AskHandler handles POST /api/ask requests
func (h *AskHandler) AskHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error().Err(err).Msg("Failed to decode ask request")
		writeJSON(w, http.StatusBadRequest, askResponse{
			Success: false,
			Error:   "Invalid request body",
		})
		return
	}

	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, askResponse{
			Success: false,
			Error:   "Question field is required",
		})
		return
	}

	h.logger.Info().
		Int("question_length", len(req.Question)).
		Int("medications", len(req.Medications)).
		Msg("Processing ask request")

	result, err := h.controller.Ask(r.Context(), pipeline.Request{
		PatientID:   req.PatientID,
		Question:    req.Question,
		Medications: req.Medications,
	})
	if err != nil {
		h.writeAskError(w, result, err)
		return
	}

	resp := askResponse{
		Success:       true,
		RequestID:     result.RequestID,
		Answer:        result.Answer.Text,
		Citations:     result.Answer.Citations,
		Emergency:     result.Answer.Emergency,
		UsedWebSearch: result.Answer.UsedWebSearch,
	}
	if !result.Answer.Emergency {
		resp.Relevance = &relevanceDetail{
			Score:    result.Verdict.Score,
			Decision: string(result.Verdict.Decision),
			Degraded: result.Verdict.Degraded,
		}
	}
	for _, warning := range result.Warnings {
		resp.Warnings = append(resp.Warnings, warning.Message)
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeAskError maps pipeline errors onto HTTP statuses. A retrieval failure
// still carries the fixed user-facing message from the pipeline result.
func (h *AskHandler) writeAskError(w http.ResponseWriter, result *pipeline.Result, err error) {
	h.logger.Error().Err(err).Msg("Pipeline run failed")

	switch {
	case errors.Is(err, models.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, askResponse{
			Success: false,
			Error:   "Question field is required",
		})
	case errors.Is(err, models.ErrAdapterTimeout), errors.Is(err, models.ErrAdapterUnavailable):
		resp := askResponse{
			Success: false,
			Error:   "Knowledge service unavailable",
		}
		if result != nil {
			resp.RequestID = result.RequestID
			resp.Answer = result.Answer.Text
		}
		writeJSON(w, http.StatusBadGateway, resp)
	default:
		writeJSON(w, http.StatusInternalServerError, askResponse{
			Success: false,
			Error:   "Failed to process question",
		})
	}
}

// HealthHandler handles GET /api/health requests
func (h *AskHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
