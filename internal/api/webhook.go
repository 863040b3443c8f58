package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/adwatch/internal/clerk"
	"github.com/victornm/adwatch/internal/errors"
	"github.com/victornm/adwatch/internal/user"
)

// handleClerkWebhook ingests identity-provider user events. Verification
// failures render 400 so the provider retries only transient errors.
func (a *API) handleClerkWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	e, err := a.webhooks.Verify(payload, clerk.Headers{
		ID:        c.GetHeader("svix-id"),
		Timestamp: c.GetHeader("svix-timestamp"),
		Signature: c.GetHeader("svix-signature"),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errors.Convert(err).Message})
		return
	}

	switch e.Type {
	case clerk.EventUserCreated, clerk.EventUserUpdated:
		err = a.user.SyncUpsert(c.Request.Context(), user.SyncRequest{
			ClerkID: e.Data.ID,
			Email:   e.Data.PrimaryEmail(),
			Name:    e.Data.FullName(),
		})
	case clerk.EventUserDeleted:
		err = a.user.SyncDelete(c.Request.Context(), e.Data.ID)
	default:
		// Unrecognized event types are acknowledged so the provider does not
		// retry them forever.
	}
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
