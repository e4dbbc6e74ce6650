package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/commercekit/loyalty-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// LoyaltyHandler handles loyalty-related HTTP requests
type LoyaltyHandler struct {
	loyaltyService services.LoyaltyService
}

// NewLoyaltyHandler creates a new LoyaltyHandler
func NewLoyaltyHandler(loyaltyService services.LoyaltyService) *LoyaltyHandler {
	return &LoyaltyHandler{
		loyaltyService: loyaltyService,
	}
}

// GetAccount handles GET /loyalty/accounts/:customerId
func (h *LoyaltyHandler) GetAccount(c *gin.Context) {
	customerID := c.Param("customerId")

	account, err := h.loyaltyService.GetOrCreateAccount(c, customerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GetTierInfo handles GET /loyalty/accounts/:customerId/tier
func (h *LoyaltyHandler) GetTierInfo(c *gin.Context) {
	customerID := c.Param("customerId")

	info, err := h.loyaltyService.GetTierInfo(c, customerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

// ListTransactions handles GET /loyalty/accounts/:customerId/transactions
func (h *LoyaltyHandler) ListTransactions(c *gin.Context) {
	customerID := c.Param("customerId")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	transactions, err := h.loyaltyService.ListTransactions(c, customerID, page, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, transactions)
}

// UpdateBirthday handles PUT /loyalty/accounts/:customerId/birthday
func (h *LoyaltyHandler) UpdateBirthday(c *gin.Context) {
	customerID := c.Param("customerId")

	var request struct {
		Birthday string                 `json:"birthday" binding:"required"`
		Metadata map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	birthday, err := time.Parse("2006-01-02", request.Birthday)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid birthday format (YYYY-MM-DD)"})
		return
	}

	account, err := h.loyaltyService.UpdateProfile(c, customerID, &birthday, request.Metadata)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// GetBirthdayRewardEligibility handles GET /loyalty/accounts/:customerId/birthday-reward/eligibility
func (h *LoyaltyHandler) GetBirthdayRewardEligibility(c *gin.Context) {
	customerID := c.Param("customerId")

	eligible, err := h.loyaltyService.IsBirthdayRewardEligible(c, customerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"eligible": eligible})
}

// MarkBirthdayRewardSent handles POST /loyalty/accounts/:customerId/birthday-reward/sent
func (h *LoyaltyHandler) MarkBirthdayRewardSent(c *gin.Context) {
	customerID := c.Param("customerId")

	if err := h.loyaltyService.MarkBirthdayRewardSent(c, customerID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Birthday reward marked as sent"})
}

// OrderCompleted handles POST /loyalty/orders/complete. Called by the
// checkout system once per completed purchase; duplicate deliveries are safe.
func (h *LoyaltyHandler) OrderCompleted(c *gin.Context) {
	var request struct {
		CustomerID string                 `json:"customerId" binding:"required"`
		OrderID    string                 `json:"orderId" binding:"required"`
		Amount     float64                `json:"amount" binding:"required"`
		Metadata   map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.loyaltyService.AwardPointsForOrder(c, request.CustomerID, request.OrderID, request.Amount, request.Metadata)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AwardPoints handles POST /loyalty/points/award (admin)
func (h *LoyaltyHandler) AwardPoints(c *gin.Context) {
	var request struct {
		CustomerID string                 `json:"customerId" binding:"required"`
		Points     int                    `json:"points" binding:"required"`
		Reason     string                 `json:"reason" binding:"required"`
		OrderID    string                 `json:"orderId"`
		Metadata   map[string]interface{} `json:"metadata"`
		Adjustment bool                   `json:"adjustment"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.loyaltyService.AwardPoints(c, request.CustomerID, request.Points, services.PointsOptions{
		Reason:     request.Reason,
		OrderID:    request.OrderID,
		Metadata:   request.Metadata,
		Adjustment: request.Adjustment,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RedeemPoints handles POST /loyalty/points/redeem (admin)
func (h *LoyaltyHandler) RedeemPoints(c *gin.Context) {
	var request struct {
		CustomerID string                 `json:"customerId" binding:"required"`
		Points     int                    `json:"points" binding:"required"`
		Reason     string                 `json:"reason" binding:"required"`
		Metadata   map[string]interface{} `json:"metadata"`
		Adjustment bool                   `json:"adjustment"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.loyaltyService.RedeemPoints(c, request.CustomerID, request.Points, services.PointsOptions{
		Reason:     request.Reason,
		Metadata:   request.Metadata,
		Adjustment: request.Adjustment,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// respondServiceError maps service errors onto HTTP responses
func respondServiceError(c *gin.Context, err error) {
	var insufficient *services.InsufficientPointsError
	switch {
	case errors.Is(err, services.ErrInvalidCustomerID), errors.Is(err, services.ErrInvalidPoints):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     "Insufficient points",
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error: " + err.Error()})
	}
}
