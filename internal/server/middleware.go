package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/udayshankar95/central-farming-tool/internal/session"
	"github.com/udayshankar95/central-farming-tool/internal/usecase"
	"github.com/udayshankar95/central-farming-tool/pkg/logger"
)

const (
	headerAgentID    = "X-Agent-Id"
	headerAgentName  = "X-Agent-Name"
	headerAgentEmail = "X-Agent-Email"
	headerRequestID  = "X-Request-Id"
)

// requestIDMiddleware attaches a request ID to every request context, reusing
// the caller's X-Request-Id when present.
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(headerRequestID, requestID)
		c.Request = c.Request.WithContext(session.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// sessionMiddleware resolves the agent identity from the session headers. The
// identity is trusted as-is; an upstream gateway owns authentication. Requests
// without an agent id are rejected before any handler runs.
func sessionMiddleware(agents *usecase.AgentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		agentID := c.GetHeader(headerAgentID)
		if agentID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + headerAgentID + " header"})
			return
		}

		ctx := session.WithIdentity(c.Request.Context(), session.Identity{
			AgentID:    agentID,
			AgentName:  c.GetHeader(headerAgentName),
			AgentEmail: c.GetHeader(headerAgentEmail),
		})
		c.Request = c.Request.WithContext(ctx)

		// Best effort: the directory upsert must not block the request.
		if agents != nil {
			if err := agents.EnsureSessionAgent(ctx); err != nil {
				logger.FromContext(ctx).Warn("Session agent upsert failed",
					zap.String("agent_id", agentID),
					zap.Error(err))
			}
		}

		c.Next()
	}
}
