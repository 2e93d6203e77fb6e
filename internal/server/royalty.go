package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	royaltydomain "github.com/podslice/podslice/internal/royalty/domain"
)

func (s *Server) CalculateRoyalties(c *gin.Context) {
	var req royaltydomain.CalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	statement, err := s.royaltySvc.Calculate(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, statement)
}

func (s *Server) ListStatements(c *gin.Context) {
	req := royaltydomain.ListStatementsRequest{}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
		req.Limit = limit
	}

	statements, err := s.royaltySvc.ListStatements(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": statements})
}

func (s *Server) GetStatement(c *gin.Context) {
	statementID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, royaltydomain.ErrStatementNotFound)
		return
	}

	statement, lineItems, err := s.royaltySvc.GetStatement(c.Request.Context(), statementID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"statement":  statement,
		"line_items": lineItems,
	})
}

func parseID(raw string) (snowflake.ID, error) {
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return snowflake.ID(parsed), nil
}
