package handlers

import (
	"net/http"
	"strings"

	"storefront/audit"
	"storefront/dtos"
	"storefront/middleware"
	"storefront/models"
	"storefront/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SupportHandler struct {
	DB    *gorm.DB
	Audit *audit.Logger
}

// CreateInquiry stores a message from the contact form.
func (h *SupportHandler) CreateInquiry(c *gin.Context) {
	var req dtos.InquiryRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	inquiry := models.Inquiry{
		Email:   strings.TrimSpace(req.Email),
		Message: strings.TrimSpace(req.Message),
	}
	if inquiry.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}

	if err := h.DB.Create(&inquiry).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send inquiry"})
		return
	}

	actor := audit.GuestActor()
	if userID, ok := middleware.UserID(c); ok {
		actor = audit.UserActor(userID)
	}
	h.Audit.Emit(c.Request.Context(), audit.Event{
		Name:      audit.InquiryReceived,
		Actor:     actor,
		RequestID: middleware.GetRequestID(c),
		EmailMask: audit.MaskEmail(inquiry.Email),
		Extra:     map[string]any{"inquiry_id": inquiry.ID},
	})

	c.JSON(http.StatusCreated, gin.H{"message": "Thank you, we will get back to you soon", "id": inquiry.ID})
}
