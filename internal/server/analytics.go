package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/podslice/podslice/internal/analytics/domain"
)

func (s *Server) AggregateAnalytics(c *gin.Context) {
	var req analyticsdomain.AggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.analyticsSvc.Aggregate(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) ListRollups(c *gin.Context) {
	req := analyticsdomain.ListRollupsRequest{
		ContentID: c.Query("content_id"),
	}
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			AbortWithError(c, analyticsdomain.ErrInvalidRange)
			return
		}
		req.From = parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			AbortWithError(c, analyticsdomain.ErrInvalidRange)
			return
		}
		req.To = parsed
	}

	rollups, err := s.analyticsSvc.ListRollups(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rollups})
}
