package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mycelicmemory/core/internal/retrieval"
	"github.com/mycelicmemory/core/internal/storage"
)

// CreateMemoryRequest is the body of POST /api/v1/memories.
type CreateMemoryRequest struct {
	Content    string            `json:"content" binding:"required"`
	UserID     string            `json:"user_id" binding:"required"`
	Importance float64           `json:"importance"`
	Metadata   map[string]string `json:"metadata"`
}

// FactResult is a fact extracted and persisted from a stored memory.
type FactResult struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// ContradictionResult reports a conflict resolved while storing a memory.
type ContradictionResult struct {
	Type       string  `json:"type"`
	Resolution string  `json:"resolution"`
	Confidence float64 `json:"confidence"`
}

// CreateMemoryResponse is returned by POST /api/v1/memories.
type CreateMemoryResponse struct {
	MemoryID       string                 `json:"memory_id"`
	Facts          []FactResult           `json:"facts"`
	Entities       []string               `json:"entities"`
	Contradictions []ContradictionResult  `json:"contradictions"`
	Duplicates     int                    `json:"duplicates"`
}

func toMetadata(m map[string]string) storage.Metadata {
	if len(m) == 0 {
		return nil
	}
	meta := make(storage.Metadata, len(m))
	for k, v := range m {
		meta[k] = storage.StringValue(v)
	}
	return meta
}

// createMemory handles POST /api/v1/memories
func (s *Server) createMemory(c *gin.Context) {
	var req CreateMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}
	if err := validateContent(req.Content); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	result, err := s.facade.StoreMemoryWithConflictDetection(c.Request.Context(), req.Content, req.UserID, req.Importance, toMetadata(req.Metadata))
	if err != nil {
		InternalError(c, "Failed to store memory: "+err.Error())
		return
	}

	resp := CreateMemoryResponse{
		MemoryID:   result.MemoryID,
		Duplicates: result.Duplicates,
	}
	for _, f := range result.Facts {
		resp.Facts = append(resp.Facts, FactResult{ID: f.ID, Subject: f.Subject, Predicate: f.Predicate, Object: f.Object})
	}
	for _, e := range result.Entities {
		resp.Entities = append(resp.Entities, e.Name)
	}
	for _, ct := range result.Contradictions {
		resp.Contradictions = append(resp.Contradictions, ContradictionResult{
			Type:       string(ct.Type),
			Resolution: string(ct.Resolution),
			Confidence: ct.Confidence,
		})
	}

	CreatedResponse(c, "Memory stored", resp)
}

// QueryRequest is the body of POST /api/v1/query.
type QueryRequest struct {
	Query      string `json:"query" binding:"required"`
	UserID     string `json:"user_id" binding:"required"`
	SessionID  string `json:"session_id"`
	TopK       int    `json:"top_k"`
	AllSessions bool  `json:"all_sessions"`
}

// MemoryMatch is one scored memory returned from a query.
type MemoryMatch struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Reason  string  `json:"reason"`
}

// QueryResponse is returned by POST /api/v1/query.
type QueryResponse struct {
	Results        []MemoryMatch `json:"results"`
	QueryType      string        `json:"query_type"`
	StrategiesUsed []string      `json:"strategies_used"`
	ElapsedMS      int64         `json:"elapsed_ms"`
}

// query handles POST /api/v1/query
func (s *Server) query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "Invalid request body: "+err.Error())
		return
	}
	if err := validateQuery(req.Query); err != nil {
		BadRequestError(c, err.Error())
		return
	}

	topK := clampLimit(req.TopK)

	var results []MemoryMatch
	var queryType string
	var strategies []string
	var elapsed int64

	if req.AllSessions || req.SessionID == "" {
		r, err := s.facade.QueryAcrossSessions(c.Request.Context(), req.Query, req.UserID, topK)
		if err != nil {
			InternalError(c, "Query failed: "+err.Error())
			return
		}
		results, queryType, strategies, elapsed = toMatches(r)
	} else {
		r, err := s.facade.RetrieveContext(c.Request.Context(), req.Query, req.UserID, req.SessionID, topK)
		if err != nil {
			InternalError(c, "Query failed: "+err.Error())
			return
		}
		results, queryType, strategies, elapsed = toMatches(r)
	}

	SuccessResponse(c, "Query executed", QueryResponse{
		Results:        results,
		QueryType:      queryType,
		StrategiesUsed: strategies,
		ElapsedMS:      elapsed,
	})
}

func toMatches(r retrieval.Response) ([]MemoryMatch, string, []string, int64) {
	matches := make([]MemoryMatch, 0, len(r.Results))
	for _, sr := range r.Results {
		matches = append(matches, MemoryMatch{
			ID:      sr.Node.ID,
			Content: sr.Node.Content,
			Score:   sr.Score,
			Reason:  sr.Reason,
		})
	}
	return matches, string(r.QueryType), r.StrategiesUsed, r.ElapsedMS
}

// stats handles GET /api/v1/stats
func (s *Server) stats(c *gin.Context) {
	stats, err := s.facade.GetMemoryStats()
	if err != nil {
		InternalError(c, "Failed to get stats: "+err.Error())
		return
	}
	SuccessResponse(c, "Stats retrieved", stats)
}
