package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketinni/backend/models"
	"github.com/marketinni/backend/services"
)

// WatchlistController handles watchlist endpoints
type WatchlistController struct{}

// NewWatchlistController creates a new watchlist controller
func NewWatchlistController() *WatchlistController {
	return &WatchlistController{}
}

// AddWatchlistRequest is the POST body for adding a symbol
type AddWatchlistRequest struct {
	Symbol  string `json:"symbol" binding:"required"`
	Company string `json:"company"`
}

// GetWatchlist returns the authenticated user's watchlist
// GET /api/v1/watchlist
func (ctrl *WatchlistController) GetWatchlist(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	items, err := services.GlobalMongoClient.ListWatchlist(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"watchlist": items,
		"count":     len(items),
	})
}

// AddToWatchlist adds a symbol to the user's watchlist
// POST /api/v1/watchlist
func (ctrl *WatchlistController) AddToWatchlist(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	var req AddWatchlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := models.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Symbol is required"})
		return
	}

	item := &models.WatchlistItem{
		UserID:  c.GetString("user_id"),
		Symbol:  symbol,
		Company: req.Company,
		AddedAt: time.Now(),
	}

	if err := services.GlobalMongoClient.AddWatchlistItem(c.Request.Context(), item); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Broadcast only on success
	notifyChange(services.EventWatchlistUpdate, map[string]interface{}{
		"email":  c.GetString("user_email"),
		"symbol": symbol,
		"action": "add",
	})

	c.JSON(http.StatusOK, gin.H{"added": symbol})
}

// RemoveFromWatchlist removes a symbol from the user's watchlist
// DELETE /api/v1/watchlist/:symbol
func (ctrl *WatchlistController) RemoveFromWatchlist(c *gin.Context) {
	if services.GlobalMongoClient == nil || !services.GlobalMongoClient.IsConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Store not initialized"})
		return
	}

	symbol := models.NormalizeSymbol(c.Param("symbol"))
	err := services.GlobalMongoClient.RemoveWatchlistItem(c.Request.Context(), c.GetString("user_id"), symbol)
	if err != nil {
		if err == services.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Symbol not on watchlist"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	notifyChange(services.EventWatchlistUpdate, map[string]interface{}{
		"email":  c.GetString("user_email"),
		"symbol": symbol,
		"action": "remove",
	})

	c.JSON(http.StatusOK, gin.H{"removed": symbol})
}
