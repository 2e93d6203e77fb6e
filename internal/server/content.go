package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	contentdomain "github.com/podslice/podslice/internal/content/domain"
)

func (s *Server) CreatePodcast(c *gin.Context) {
	var req contentdomain.CreatePodcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	podcast, err := s.contentSvc.CreatePodcast(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, podcast)
}

func (s *Server) CreateContent(c *gin.Context) {
	var req contentdomain.CreateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	item, err := s.contentSvc.CreateContent(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) ListContent(c *gin.Context) {
	req := contentdomain.ListContentRequest{
		PodcastID: c.Query("podcast_id"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.Limit = limit
	}

	items, err := s.contentSvc.ListContent(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
