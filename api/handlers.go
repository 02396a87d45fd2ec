package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ttrsuite/lexeval/internal/consolidate"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.store.Runs(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	out := make([]gin.H, 0, len(runs))
	for _, info := range runs {
		out = append(out, gin.H{
			"run_id":     info.RunID,
			"models":     info.Models,
			"tasks":      info.Tasks,
			"started_at": info.StartedAt.UTC().Format(time.RFC3339),
			"last_at":    info.LastAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetRunResults(c *gin.Context) {
	runID := strings.TrimSpace(c.Param("id"))
	if runID == "" {
		respondError(c, http.StatusBadRequest, errors.New("missing run id"))
		return
	}

	recs, err := s.store.Records(c.Request.Context(), runID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if len(recs) == 0 {
		respondError(c, http.StatusNotFound, errors.New("run not found"))
		return
	}

	model := strings.TrimSpace(c.Query("model"))
	benchmark := strings.ToLower(strings.TrimSpace(c.Query("benchmark")))
	if model != "" || benchmark != "" {
		filtered := recs[:0]
		for _, r := range recs {
			if model != "" && r.ModelID != model {
				continue
			}
			if benchmark != "" && r.Benchmark != benchmark {
				continue
			}
			filtered = append(filtered, r)
		}
		recs = filtered
	}

	c.JSON(http.StatusOK, recs)
}

// handleGetLeaderboard consolidates every stored run into the ranked
// per-model report. Optional ?runs=a,b restricts the merge.
func (s *Server) handleGetLeaderboard(c *gin.Context) {
	var runIDs []string
	if raw := strings.TrimSpace(c.Query("runs")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				runIDs = append(runIDs, part)
			}
		}
	}

	recs, err := consolidate.LoadStore(c.Request.Context(), s.store, runIDs)
	if err != nil {
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	if len(recs) == 0 {
		respondError(c, http.StatusNotFound, errors.New("no results stored"))
		return
	}

	c.JSON(http.StatusOK, s.cons.Consolidate(recs))
}

func respondError(c *gin.Context, status int, err error) {
	if err == nil {
		c.Status(status)
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
