package handlers

import (
	"errors"
	"net/http"
	"strings"

	"storefront/audit"
	"storefront/checkout"
	"storefront/events"
	"storefront/middleware"
	"storefront/models"
	"storefront/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB     *gorm.DB
	Audit  *audit.Logger
	Events checkout.Publisher
}

func userJSON(u *models.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"phone":      u.Phone,
		"address":    u.Address,
		"city":       u.City,
		"role":       u.Role,
	}
}

func issueTokens(c *gin.Context, u *models.User) (gin.H, bool) {
	token, err := utils.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return nil, false
	}
	refreshToken, err := utils.GenerateRefreshToken(u.ID, u.Email, u.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return nil, false
	}
	return gin.H{"token": token, "refresh_token": refreshToken, "user": userJSON(u)}, true
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email" binding:"required,email,max=254"`
		Password  string `json:"password" binding:"required,min=8"`
		FirstName string `json:"first_name" binding:"max=50"`
		LastName  string `json:"last_name" binding:"max=50"`
		Phone     string `json:"phone" binding:"omitempty,max=20,phone"`
		Address   string `json:"address"`
		City      string `json:"city" binding:"max=100"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var existing models.User
	if err := h.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		Email:     email,
		Password:  string(hashedPassword),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
		Address:   strings.TrimSpace(req.Address),
		City:      strings.TrimSpace(req.City),
		Role:      models.RoleCustomer,
	}

	if err := h.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	body, ok := issueTokens(c, &user)
	if !ok {
		return
	}

	requestID := middleware.GetRequestID(c)
	h.Audit.Emit(c.Request.Context(), audit.Event{
		Name:      audit.UserRegistered,
		Actor:     audit.UserActor(user.ID),
		RequestID: requestID,
		EmailMask: audit.MaskEmail(user.Email),
	})
	if h.Events != nil {
		h.Events.Publish(c.Request.Context(), events.UserRegistered{User: user, RequestID: requestID})
	}

	c.JSON(http.StatusCreated, body)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	requestID := middleware.GetRequestID(c)

	failed := func() {
		h.Audit.Emit(c.Request.Context(), audit.Event{
			Name:      audit.LoginFailed,
			Actor:     audit.GuestActor(),
			RequestID: requestID,
			EmailMask: audit.MaskEmail(email),
			Extra:     map[string]any{"ip": c.ClientIP()},
		})
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	}

	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		failed()
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		failed()
		return
	}

	body, ok := issueTokens(c, &user)
	if !ok {
		return
	}

	actor := audit.UserActor(user.ID)
	if user.IsStaff() {
		actor = audit.StaffActor(user.ID)
	}
	h.Audit.Emit(c.Request.Context(), audit.Event{
		Name:      audit.LoginSucceeded,
		Actor:     actor,
		RequestID: requestID,
		Extra:     map[string]any{"ip": c.ClientIP()},
	})

	c.JSON(http.StatusOK, body)
}

func (h *AuthHandler) currentUser(c *gin.Context) (*models.User, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
		}
		return nil, false
	}
	return &user, true
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, userJSON(user))
}

// UpdateProfile changes the contact data that prefills the checkout form.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		FirstName *string `json:"first_name" binding:"omitempty,max=50"`
		LastName  *string `json:"last_name" binding:"omitempty,max=50"`
		Phone     *string `json:"phone" binding:"omitempty,max=20,phone"`
		Address   *string `json:"address"`
		City      *string `json:"city" binding:"omitempty,max=100"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	for dst, src := range map[*string]*string{
		&user.FirstName: req.FirstName,
		&user.LastName:  req.LastName,
		&user.Phone:     req.Phone,
		&user.Address:   req.Address,
		&user.City:      req.City,
	} {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}

	if err := h.DB.Save(user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, userJSON(user))
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Current password is incorrect"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	if err := h.DB.Model(user).Update("password", string(hashedPassword)).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to change password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// RefreshToken trades a valid refresh token for a new pair. The user is
// reloaded so a changed role takes effect.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	claims, err := utils.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	var user models.User
	if err := h.DB.First(&user, claims.UserID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
		return
	}

	body, ok := issueTokens(c, &user)
	if !ok {
		return
	}
	delete(body, "user")
	c.JSON(http.StatusOK, body)
}
