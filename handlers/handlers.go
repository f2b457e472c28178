package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/saiganesh141124/flora-intel/apperrors"
	"github.com/saiganesh141124/flora-intel/auth"
	"github.com/saiganesh141124/flora-intel/history"
	"github.com/saiganesh141124/flora-intel/models"
	"github.com/saiganesh141124/flora-intel/service"
	ws "github.com/saiganesh141124/flora-intel/websocket"
)

// MaxImageBytes bounds decoded upload size.
const MaxImageBytes = 10 << 20

// Handlers contains all HTTP handlers
type Handlers struct {
	analysis *service.Service
	store    *history.Store
	hub      *ws.Hub
	auth     *auth.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(analysis *service.Service, store *history.Store, hub *ws.Hub, authService *auth.Service) *Handlers {
	return &Handlers{
		analysis: analysis,
		store:    store,
		hub:      hub,
		auth:     authService,
	}
}

// SubmitAnalysisRequest is the payload schema for a submission. The image is
// a base64 string, optionally a full data URL.
type SubmitAnalysisRequest struct {
	ImageBase64 string `json:"image_base64"`
	ContentType string `json:"content_type"`
}

// SubmitAnalysis handles POST /api/v3/analysis
func (h *Handlers) SubmitAnalysis(c *gin.Context) {
	principalID := c.GetString("principal_id")
	if principalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SubmitAnalysisRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.ImageBase64 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no image data provided"})
		return
	}

	imageData, contentType, err := decodeImagePayload(req.ImageBase64, req.ContentType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image encoding"})
		return
	}
	if len(imageData) > MaxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}

	record, err := h.analysis.Submit(c.Request.Context(), principalID, imageData, contentType)
	if err != nil {
		respondError(c, err)
		return
	}

	h.hub.NoteEvent()
	c.JSON(http.StatusCreated, record)
}

// ListHistory handles GET /api/v3/analysis
func (h *Handlers) ListHistory(c *gin.Context) {
	principalID := c.GetString("principal_id")
	if principalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	records, err := h.store.List(c.Request.Context(), principalID)
	if err != nil {
		log.Errorf("Failed to list history for %s: %v", principalID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve analyses"})
		return
	}
	if records == nil {
		records = []models.AnalysisRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses": records,
		"count":    len(records),
	})
}

// GetAnalysis handles GET /api/v3/analysis/:id
func (h *Handlers) GetAnalysis(c *gin.Context) {
	principalID := c.GetString("principal_id")
	if principalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	recordID := c.Param("id")
	record, err := h.store.Get(c.Request.Context(), principalID, recordID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis":       record,
		"summary":        record.FormatSummary(),
		"severity_color": models.SeverityColor(record.Severity),
		"pathogen_icon":  models.PathogenIcon(record.Result.PathogenType),
	})
}

// DeleteAnalysis handles DELETE /api/v3/analysis/:id
func (h *Handlers) DeleteAnalysis(c *gin.Context) {
	principalID := c.GetString("principal_id")
	if principalID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	recordID := c.Param("id")
	if err := h.store.Delete(c.Request.Context(), principalID, recordID); err != nil {
		respondError(c, err)
		return
	}

	h.hub.NoteEvent()
	c.Status(http.StatusNoContent)
}

// WebSocket upgrader
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now
		// In production, you should implement proper origin checking
		return true
	},
}

// ListenHistory handles WebSocket connections for live history updates.
// Browsers cannot set headers on websocket dials, so the token rides in the
// query string.
func (h *Handlers) ListenHistory(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	principalID, err := h.auth.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Errorf("Failed to upgrade connection to WebSocket: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, principalID)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	log.Infof("WebSocket connection established for principal %s", principalID)
}

// HealthCheck returns the service health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	connectedClients, lastEventAt := h.hub.GetStats()

	response := models.HealthResponse{
		Status:           "healthy",
		Service:          "flora-intel",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		ConnectedClients: connectedClients,
	}
	if !lastEventAt.IsZero() {
		response.LastEventAt = lastEventAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, response)
}

// decodeImagePayload accepts either a plain base64 string or a data URL and
// returns the raw bytes plus the effective content type.
func decodeImagePayload(payload, declaredType string) ([]byte, string, error) {
	contentType := declaredType

	if strings.HasPrefix(payload, "data:") {
		// data:image/jpeg;base64,<payload>
		rest := strings.TrimPrefix(payload, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi >= 0 {
			if contentType == "" {
				contentType = rest[:semi]
			}
			payload = rest[semi+len(";base64,"):]
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// respondError maps an error kind to its HTTP status and message. Kinds are
// never downgraded to a generic failure: the client renders kind-specific
// guidance.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Plant analysis failed"
	kind := apperrors.KindOf(err)

	switch kind {
	case apperrors.KindInvalidInput:
		status = http.StatusBadRequest
		message = "invalid request"
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
		message = "authentication required"
	case apperrors.KindRateLimited:
		status = http.StatusTooManyRequests
		message = "Rate limit exceeded. Please try again later."
	case apperrors.KindQuotaExhausted:
		status = http.StatusPaymentRequired
		message = "AI usage limit reached. Please add credits to your workspace."
	case apperrors.KindUpstream:
		status = http.StatusBadGateway
		message = "AI analysis failed"
	case apperrors.KindEmptyReply:
		status = http.StatusBadGateway
		message = "No analysis result received"
	case apperrors.KindStorage:
		status = http.StatusServiceUnavailable
		message = "Failed to store image, please retry"
	case apperrors.KindPersistence:
		status = http.StatusInternalServerError
		message = "Failed to save analysis, please contact support"
	case apperrors.KindNotFound:
		status = http.StatusNotFound
		message = "Analysis not found"
	case apperrors.KindForbidden:
		status = http.StatusForbidden
		message = "Analysis belongs to another user"
	}

	body := gin.H{"error": message}
	if kind != "" {
		body["kind"] = string(kind)
	}
	c.JSON(status, body)
}
