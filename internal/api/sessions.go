package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jaagratha/jaagratha-backend/internal/errs"
)

// Feed sessions hold a live cache refresher per client. Re-acquiring
// for the same owner displaces the previous session, so a reloaded
// dashboard never leaks its old refresher.

type acquireSessionRequest struct {
	OwnerID string `json:"ownerId"`
}

func (h *Handler) acquireFeedSession(c *gin.Context) {
	var req acquireSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errs.Validation("malformed body: %v", err))
		return
	}

	lease, err := h.deps.Sessions.Acquire(req.OwnerID)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ownerId": lease.OwnerID, "token": lease.Token})
}

func (h *Handler) releaseFeedSession(c *gin.Context) {
	owner := c.Param("owner")
	token := c.Query("token")
	if token == "" {
		renderError(c, errs.Validation("token is required"))
		return
	}

	if !h.deps.Sessions.ReleaseToken(owner, token) {
		renderError(c, errs.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"released": owner})
}
