package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chalkline/papergraph/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)

	if year := queryInt(r, "year", 0); year > 0 {
		freqs, err := s.engine.ConceptsByYear(r.Context(), year)
		if err != nil {
			s.logger.Error("concepts by year failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, freqs)
		return
	}
	if paperID := queryInt(r, "paper_id", 0); paperID > 0 {
		freqs, err := s.engine.ConceptsByPaper(r.Context(), int64(paperID))
		if err != nil {
			s.logger.Error("concepts by paper failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, freqs)
		return
	}

	freqs, err := s.engine.TopConcepts(r.Context(), limit)
	if err != nil {
		s.logger.Error("list concepts failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, freqs)
}

func (s *Server) handleConceptDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid concept id")
		return
	}
	detail, err := s.engine.ConceptDetailByID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "concept not found")
		return
	}
	if err != nil {
		s.logger.Error("concept detail failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	groups, err := s.engine.ConceptsByCategory(r.Context())
	if err != nil {
		s.logger.Error("categories failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, groups)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		s.respondError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	limit := queryInt(r, "limit", 20)
	s.logger.Debug("search request", zap.String("query", q), zap.Int("limit", limit))

	// Prefer the full-text index when one is wired in.
	if s.index != nil {
		hits, err := s.index.Search(r.Context(), q, limit)
		if err != nil {
			s.logger.Error("index search failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		ids := make([]int64, len(hits))
		for i, h := range hits {
			ids[i] = h.ConceptID
		}
		concepts, err := s.store.ConceptsByIDs(r.Context(), ids)
		if err != nil {
			s.logger.Error("load search hits failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, concepts)
		return
	}

	concepts, err := s.engine.Search(r.Context(), q, limit)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, concepts)
}

func (s *Server) handleListPapers(w http.ResponseWriter, r *http.Request) {
	year := queryInt(r, "year", 0)
	course := r.URL.Query().Get("course")

	papers, err := s.store.ListPapers(r.Context(), year, course)
	if err != nil {
		s.logger.Error("list papers failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, papers)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	topN := queryInt(r, "top", 10)
	trends, err := s.engine.Trends(r.Context(), topN)
	if err != nil {
		s.logger.Error("trends failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, trends)
}

func (s *Server) handleCoOccurrences(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	pairs, err := s.engine.CoOccurrences(r.Context(), limit)
	if err != nil {
		s.logger.Error("cooccurrences failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, pairs)
}

// queryInt reads an integer query parameter, returning def when absent or
// unparseable.
func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
