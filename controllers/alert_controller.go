package controllers

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/marketinni/backend/models"
	"github.com/marketinni/backend/services"
)

// AlertController handles alert CRUD endpoints
type AlertController struct{}

// NewAlertController creates a new alert controller
func NewAlertController() *AlertController {
	return &AlertController{}
}

// CreateAlertRequest is the POST body for creating an alert
type CreateAlertRequest struct {
	Symbol    string   `json:"symbol" binding:"required"`
	Operator  string   `json:"operator" binding:"required"`
	Threshold *float64 `json:"threshold" binding:"required"`
	Note      string   `json:"note"`
	Active    *bool    `json:"active"`
}

// UpdateAlertRequest is the PATCH body for updating an alert
type UpdateAlertRequest struct {
	Operator  *string  `json:"operator"`
	Threshold *float64 `json:"threshold"`
	Note      *string  `json:"note"`
	Active    *bool    `json:"active"`
}

// GetAlerts returns the authenticated user's alerts
// GET /api/v1/alerts
func (ctrl *AlertController) GetAlerts(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	userID := c.GetString("user_id")
	symbol := c.Query("symbol")

	alerts, err := services.GlobalMongoClient.ListAlertsByUser(c.Request.Context(), userID, symbol)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetAlert returns one alert owned by the authenticated user
// GET /api/v1/alerts/:id
func (ctrl *AlertController) GetAlert(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	alert, err := services.GlobalMongoClient.FindAlertByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if alert.UserID != c.GetString("user_id") {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// CreateAlert creates a new alert for the authenticated user
// POST /api/v1/alerts
func (ctrl *AlertController) CreateAlert(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !models.IsValidOperator(req.Operator) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Operator must be one of >, <, >=, <=, =="})
		return
	}
	if math.IsNaN(*req.Threshold) || math.IsInf(*req.Threshold, 0) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Threshold must be a finite number"})
		return
	}

	symbol := models.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now()
	alert := &models.Alert{
		UserID:    c.GetString("user_id"),
		Symbol:    symbol,
		Operator:  req.Operator,
		Threshold: *req.Threshold,
		Active:    active,
		Note:      req.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := services.GlobalMongoClient.CreateAlert(c.Request.Context(), alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	notifyChange(services.EventAlertsUpdate, map[string]interface{}{
		"email":  c.GetString("user_email"),
		"symbol": alert.Symbol,
		"action": "create",
	})

	c.JSON(http.StatusCreated, alert)
}

// UpdateAlert applies a partial update to one of the user's alerts
// PATCH /api/v1/alerts/:id
func (ctrl *AlertController) UpdateAlert(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	var req UpdateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update := bson.M{"updatedAt": time.Now()}
	if req.Operator != nil {
		if !models.IsValidOperator(*req.Operator) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Operator must be one of >, <, >=, <=, =="})
			return
		}
		update["operator"] = *req.Operator
	}
	if req.Threshold != nil {
		if math.IsNaN(*req.Threshold) || math.IsInf(*req.Threshold, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Threshold must be a finite number"})
			return
		}
		update["threshold"] = *req.Threshold
	}
	if req.Note != nil {
		update["note"] = *req.Note
	}
	if req.Active != nil {
		update["active"] = *req.Active
	}

	alert, err := services.GlobalMongoClient.UpdateAlert(c.Request.Context(), c.Param("id"), c.GetString("user_id"), update)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	notifyChange(services.EventAlertsUpdate, map[string]interface{}{
		"email":   c.GetString("user_email"),
		"alertId": alert.ID.Hex(),
		"symbol":  alert.Symbol,
		"action":  "update",
	})

	c.JSON(http.StatusOK, alert)
}

// DeleteAlert removes one of the user's alerts
// DELETE /api/v1/alerts/:id
func (ctrl *AlertController) DeleteAlert(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	id := c.Param("id")
	if err := services.GlobalMongoClient.DeleteAlert(c.Request.Context(), id, c.GetString("user_id")); err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	notifyChange(services.EventAlertsUpdate, map[string]interface{}{
		"email":   c.GetString("user_email"),
		"alertId": id,
		"action":  "delete",
	})

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// notifyChange pushes a change event through the broadcast bridge.
// Best-effort: a down hub never affects the CRUD response.
func notifyChange(eventType string, payload map[string]interface{}) {
	if services.GlobalBroadcastBridge != nil {
		services.GlobalBroadcastBridge.Notify(eventType, payload)
	}
}
