package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	trackingdomain "github.com/podslice/podslice/internal/tracking/domain"
)

func (s *Server) RecordEvent(c *gin.Context) {
	var req trackingdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	event, err := s.trackingSvc.Record(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, event)
}

func (s *Server) ListEvents(c *gin.Context) {
	req := trackingdomain.ListRequest{
		ContentID: c.Query("content_id"),
	}

	events, err := s.trackingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}
