package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zoomsync/crm-bridge/internal/reconcile"
	"github.com/zoomsync/crm-bridge/internal/zoom"
)

// WebhookConfig carries the intake-gate settings for the zoom webhook route.
type WebhookConfig struct {
	SecretToken      string
	VerifySignatures bool
}

// RegisterZoomRoutes registers the registration-event intake endpoint.
//
// POST /webhooks/zoom
// - Answers the endpoint.url_validation handshake
// - Optionally verifies the delivery signature (401 on mismatch)
// - Idempotent: duplicate deliveries return success without side effects
func RegisterZoomRoutes(r gin.IRoutes, engine *reconcile.Engine, cfg WebhookConfig, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}

	r.POST("/webhooks/zoom", func(c *gin.Context) {
		// The signature covers the exact request bytes, so the body is read
		// raw before any decoding.
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		var evt zoom.Event
		if err := json.Unmarshal(body, &evt); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}
		if evt.Event == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "event required"})
			return
		}

		// The signature check runs before the handshake is answered. The
		// event source signs url_validation deliveries like any other, and
		// answering first would hand out an HMAC signing oracle: a caller
		// could submit "v0:{ts}:{body}" as the plain token, receive the
		// digest, and forge a signed delivery with it.
		timestamp := c.GetHeader(zoom.TimestampHeader)
		if cfg.VerifySignatures {
			signature := c.GetHeader(zoom.SignatureHeader)
			if err := zoom.VerifySignature(cfg.SecretToken, timestamp, signature, body); err != nil {
				log.Error("webhook signature rejected",
					"event_type", evt.Event, "error", err)
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
				return
			}
		}

		if evt.Event == zoom.EventURLValidation {
			signed, err := zoom.SignToken(cfg.SecretToken, evt.Payload.PlainToken)
			if err != nil {
				log.Error("url validation failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "secret token not configured"})
				return
			}
			c.JSON(http.StatusOK, gin.H{
				"plainToken":     evt.Payload.PlainToken,
				"encryptedToken": signed,
			})
			return
		}

		eventID := zoom.EventID(&evt, timestamp)
		registrant := reconcile.Registrant{
			Email:     evt.NormalizedEmail(),
			FirstName: evt.Payload.Object.Registrant.FirstName,
			LastName:  evt.Payload.Object.Registrant.LastName,
			Phone:     evt.Payload.Object.Registrant.Phone,
		}

		result, err := engine.ProcessRegistration(c.Request.Context(), eventID, evt.Event, registrant)
		if err != nil {
			log.Error("event processing failed", "event_id", eventID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
			return
		}

		status := "processed"
		if result.Duplicate {
			status = "duplicate"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   status,
			"event_id": result.EventID,
		})
	})
}
