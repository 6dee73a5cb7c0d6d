package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zoomsync/crm-bridge/internal/models"
	"github.com/zoomsync/crm-bridge/internal/zoom"
)

// ContactStore is the persistence slice the contact-context route writes to.
type ContactStore interface {
	UpsertContactFromContext(ctx context.Context, c *models.Contact) error
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSettingIfChanged(ctx context.Context, key, value string) error
}

// contactContext is the inbound contact-context payload. The CRM's automation
// posts it either flat or wrapped in a customData envelope.
type contactContext struct {
	ContactID  string `json:"contactId"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	LocationID string `json:"locationId"`
	ZoomTag    string `json:"zoom_tag"`
}

type contactContextEnvelope struct {
	contactContext
	CustomData *contactContext `json:"customData"`
}

// RegisterContactRoutes registers the configuration-context endpoint.
//
// POST /webhooks/contact
// - Requires at least one of email / contactId
// - Upserts the local contact row (keyed by contactId, else email)
// - Updates the global tag setting when zoom_tag is present and changed
func RegisterContactRoutes(r gin.IRoutes, st ContactStore, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	r.POST("/webhooks/contact", func(c *gin.Context) {
		var envelope contactContextEnvelope
		if err := c.ShouldBindJSON(&envelope); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		body := envelope.contactContext
		if envelope.CustomData != nil {
			body = *envelope.CustomData
		}

		// Empty strings must never reach the unique email column.
		email := zoom.NormalizeEmail(body.Email)

		if email == "" && body.ContactID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email or contactId required"})
			return
		}

		contact := &models.Contact{
			Email:        email,
			CRMContactID: body.ContactID,
			FirstName:    body.FirstName,
			LastName:     body.LastName,
			Phone:        body.Phone,
			LocationID:   body.LocationID,
		}
		if err := st.UpsertContactFromContext(c.Request.Context(), contact); err != nil {
			log.Error("contact upsert failed",
				"contact_id", body.ContactID, "email", email, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "contact upsert failed"})
			return
		}

		if body.ZoomTag != "" {
			current, found, err := st.GetSetting(c.Request.Context(), models.GlobalTagKey)
			if err == nil && (!found || current != body.ZoomTag) {
				err = st.SetSettingIfChanged(c.Request.Context(), models.GlobalTagKey, body.ZoomTag)
				if err == nil {
					log.Info("global tag updated", "value", body.ZoomTag)
				}
			}
			if err != nil {
				log.Error("global tag update failed", "value", body.ZoomTag, "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "settings update failed"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
