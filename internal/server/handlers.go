package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/classify"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/model"
	"github.com/121446174/nis2-compliance-dashboard-sub000/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registrationResponse struct {
	User model.User `json:"user"`
	Tier model.Tier `json:"tier"`
}

// handleCreateUser registers a user and assigns the compliance tier in
// one step. The tier is permanent; re-registering the same email fails
// on the unique constraint rather than re-classifying.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var user model.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		writeError(w, r, eris.Wrap(model.ErrInvalidInput, "invalid request body"))
		return
	}
	user.ID = ""

	created, err := s.store.CreateUser(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tier, err := classify.Assign(r.Context(), s.pool, *created)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, registrationResponse{User: *created, Tier: tier})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleGetClassification(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	tier, err := classify.Lookup(r.Context(), s.pool, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": userID, "tier": tier})
}

type submitRequest struct {
	Responses []model.Response `json:"responses"`
}

// handleSubmitResponses stores a batch of answers and recomputes the
// user's score synchronously, so the client sees the updated score in
// the response.
func (s *Server) handleSubmitResponses(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, eris.Wrap(model.ErrInvalidInput, "invalid request body"))
		return
	}
	if len(req.Responses) == 0 {
		writeError(w, r, eris.Wrap(model.ErrInvalidInput, "at least one response is required"))
		return
	}
	for i := range req.Responses {
		req.Responses[i].UserID = userID
	}

	if err := s.store.InsertResponses(r.Context(), req.Responses); err != nil {
		writeError(w, r, err)
		return
	}

	score, err := s.scorer.Recompute(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.scorer.Current(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, score)
}

func (s *Server) handleGetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")

	recs, err := s.recommender.Recommend(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":         userID,
		"recommendations": recs,
		"count":           len(recs),
	})
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	filter := store.QuestionFilter{Sector: r.URL.Query().Get("sector")}

	if raw := r.URL.Query().Get("classification"); raw != "" {
		cls, err := model.ParseClassification(raw)
		if err != nil {
			writeError(w, r, eris.Wrap(model.ErrInvalidInput, err.Error()))
			return
		}
		filter.Classification = cls
	}

	questions, err := s.store.ListQuestions(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"questions": questions,
		"count":     len(questions),
	})
}

func (s *Server) handleListBenchmarks(w http.ResponseWriter, r *http.Request) {
	benchmarks, err := s.blender.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"benchmarks": benchmarks,
		"count":      len(benchmarks),
	})
}

func (s *Server) handleGetBenchmark(w http.ResponseWriter, r *http.Request) {
	bm, err := s.blender.Get(r.Context(), chi.URLParam(r, "sector"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bm)
}

type externalBenchmarkRequest struct {
	ExternalScore   float64 `json:"external_score"`
	SourceReference string  `json:"source_reference"`
	Justification   string  `json:"justification"`
}

func (s *Server) handleSetExternalBenchmark(w http.ResponseWriter, r *http.Request) {
	sector := chi.URLParam(r, "sector")

	var req externalBenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, eris.Wrap(model.ErrInvalidInput, "invalid request body"))
		return
	}

	bm, err := s.blender.SetExternal(r.Context(), sector, req.ExternalScore, req.SourceReference, req.Justification)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bm)
}

func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	settings, err := s.blender.Settings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// handleUpdateWeights persists new blend weights and immediately
// reblends every sector benchmark so reads stay consistent with the
// stored settings.
func (s *Server) handleUpdateWeights(w http.ResponseWriter, r *http.Request) {
	var settings model.BenchmarkSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, r, eris.Wrap(model.ErrInvalidInput, "invalid request body"))
		return
	}

	if err := s.blender.UpdateSettings(r.Context(), settings); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.blender.RecomputeAll(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}
