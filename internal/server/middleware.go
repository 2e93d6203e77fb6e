package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/podslice/podslice/internal/orgcontext"
	"go.uber.org/zap"
)

const (
	HeaderOrg       = "X-Org-ID"
	HeaderUser      = "X-User-ID"
	HeaderRequestID = "X-Request-ID"
)

// RequestLogger attaches a request id and logs one line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()

		log.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// OrgContext resolves the calling organization from the X-Org-ID header and
// injects it into the request context. Falls back to the configured default
// org so single-tenant installs work without the header.
func (s *Server) OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := s.cfg.DefaultOrgID
		if raw := strings.TrimSpace(c.GetHeader(HeaderOrg)); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				AbortWithError(c, ErrInvalidRequest)
				return
			}
			orgID = parsed
		}
		if orgID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), snowflake.ID(orgID))
		if raw := strings.TrimSpace(c.GetHeader(HeaderUser)); raw != "" {
			if userID, err := strconv.ParseInt(raw, 10, 64); err == nil {
				ctx = orgcontext.WithUserID(ctx, snowflake.ID(userID))
			}
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminRequired gates mutating royalty and payout operations behind the
// admin role for the organization in context.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID, ok := orgcontext.UserIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		admin, err := s.organizationSvc.IsAdmin(ctx, userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !admin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}
