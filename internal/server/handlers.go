package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bmcfleet/goldfish/internal/store"
)

// defaultRunLimit caps GET /api/runs responses unless ?limit= overrides it.
const defaultRunLimit = 20

type runJSON struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"kind"`
	GroupName   string    `json:"group_name"`
	Source      string    `json:"source,omitempty"`
	ProfilePath string    `json:"profile_path,omitempty"`
	TargetCount int       `json:"target_count"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

type targetResultJSON struct {
	Position  int    `json:"position"`
	Address   string `json:"address"`
	OK        bool   `json:"ok"`
	JobID     string `json:"job_id,omitempty"`
	TaskState string `json:"task_state,omitempty"`
	Message   string `json:"message,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

func runToJSON(run store.Run) runJSON {
	return runJSON{
		ID:          run.ID,
		Kind:        run.Kind,
		GroupName:   run.GroupName,
		Source:      run.Source,
		ProfilePath: run.ProfilePath,
		TargetCount: run.TargetCount,
		Succeeded:   run.Succeeded,
		Failed:      run.Failed,
		Status:      run.Status,
		Error:       run.ErrorMessage,
		StartTime:   run.StartTime,
		EndTime:     run.EndTime,
	}
}

func resultToJSON(tr store.TargetResult) targetResultJSON {
	return targetResultJSON{
		Position:  tr.Position,
		Address:   tr.Address,
		OK:        tr.OK,
		JobID:     tr.JobID,
		TaskState: tr.TaskState,
		Message:   tr.Message,
		ElapsedMs: tr.ElapsedMs,
	}
}

// handleHealth reports liveness and the running version.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListRuns returns recent runs, newest first. Supports ?kind= and
// ?limit= query filters.
func (s *Server) handleListRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(c.Query("kind"), limit)
	if err != nil {
		s.logger.Error("failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
		return
	}

	response := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		response = append(response, runToJSON(run))
	}
	c.JSON(http.StatusOK, response)
}

// handleGetRun returns one run with its per-target results.
func (s *Server) handleGetRun(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	run, err := s.store.GetRun(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	results, err := s.store.ListTargetResults(id)
	if err != nil {
		s.logger.Error("failed to list target results", "error", err, "run", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list target results"})
		return
	}

	targets := make([]targetResultJSON, 0, len(results))
	for _, tr := range results {
		targets = append(targets, resultToJSON(tr))
	}

	c.JSON(http.StatusOK, gin.H{
		"run":     runToJSON(*run),
		"targets": targets,
	})
}
