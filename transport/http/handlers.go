package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/service"
)

// Handlers contains HTTP handlers for the auth and wallet endpoints
type Handlers struct {
	auth     *service.AuthService
	resolver *service.SessionResolver
	gateway  *service.SigningGateway
}

// NewHandlers creates new handlers
func NewHandlers(auth *service.AuthService, resolver *service.SessionResolver, gateway *service.SigningGateway) *Handlers {
	return &Handlers{
		auth:     auth,
		resolver: resolver,
		gateway:  gateway,
	}
}

const welcomePage = `<!DOCTYPE html>
<html>
<head><title>dSigner</title></head>
<body>
<h1>Welcome!</h1>
<p>Your email has been verified. You can close this page and sign in.</p>
</body>
</html>`

// Hello handles the default route
func (h *Handlers) Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello!"})
}

// Welcome serves the email verification landing page
func (h *Handlers) Welcome(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(welcomePage))
}

// SignUp handles new user registration
func (h *Handlers) SignUp(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	identity, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": identity})
}

// SignIn handles sign-in, provisioning the wallet on first use
func (h *Handlers) SignIn(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	result, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"id":     result.User.ID,
			"email":  result.User.Email,
			"wallet": result.Wallet,
		},
		"session": gin.H{
			"access_token": result.Session.AccessToken,
		},
	})
}

// NewOTP handles OTP resend requests
func (h *Handlers) NewOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	if err := h.auth.NewOTP(c.Request.Context(), req.Email); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "New OTP sent"})
}

// Verify handles email verification tokens
func (h *Handlers) Verify(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Verification token is required"})
		return
	}

	identity, err := h.auth.Verify(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully!", "user": identity})
}

// GetAddress returns the wallet bound to the caller's session
func (h *Handlers) GetAddress(c *gin.Context) {
	binding, err := h.resolver.Resolve(c.Request.Context(), c.GetString(accessTokenKey))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wallet": binding.Address})
}

// SignTransaction signs a transaction with the caller's wallet
func (h *Handlers) SignTransaction(c *gin.Context) {
	var req struct {
		Transaction *core.Transaction `json:"transaction" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction in the body request is required"})
		return
	}

	signed, err := h.gateway.SignTransaction(c.Request.Context(), c.GetString(accessTokenKey), req.Transaction)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signedTransaction": signed})
}

// SignMessage signs a message with the caller's wallet
func (h *Handlers) SignMessage(c *gin.Context) {
	var req struct {
		Message string `json:"message" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message in the body request is required"})
		return
	}

	signed, err := h.gateway.SignMessage(c.Request.Context(), c.GetString(accessTokenKey), req.Message)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"signedMessage": signed})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidToken), errors.Is(err, core.ErrNoBinding):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrProvider):
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
