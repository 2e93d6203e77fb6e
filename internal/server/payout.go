package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	payoutdomain "github.com/podslice/podslice/internal/payout/domain"
)

func (s *Server) PayoutStatement(c *gin.Context) {
	statementID, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, payoutdomain.ErrStatementNotFound)
		return
	}

	receipt, err := s.payoutSvc.Payout(c.Request.Context(), statementID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, receipt)
}

func (s *Server) RegisterPayee(c *gin.Context) {
	var req payoutdomain.RegisterPayeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	reference, err := s.payoutSvc.RegisterPayee(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"payee_reference": reference})
}

func (s *Server) SubmitTaxProfile(c *gin.Context) {
	var req payoutdomain.SubmitTaxProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.payoutSvc.SubmitTaxProfile(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "submitted"})
}

func (s *Server) SyncPayoutStatus(c *gin.Context) {
	status, err := s.payoutSvc.SyncPayoutStatus(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payout_status": status})
}
