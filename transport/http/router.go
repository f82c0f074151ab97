package http

import (
	"github.com/gin-gonic/gin"

	"github.com/domecloud/dsigner/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(authService *service.AuthService, resolver *service.SessionResolver, gateway *service.SigningGateway) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(authService, resolver, gateway)

	router.GET("/", handlers.Hello)

	auth := router.Group("/auth")
	{
		auth.GET("/welcome", handlers.Welcome)
		auth.POST("/signup", handlers.SignUp)
		auth.POST("/signin", handlers.SignIn)
		auth.POST("/newOTP", handlers.NewOTP)
		auth.POST("/verify", handlers.Verify)
	}

	wallet := router.Group("/wallet")
	wallet.Use(AccessTokenMiddleware())
	{
		wallet.GET("/getAddress", handlers.GetAddress)
		wallet.POST("/signTransaction", handlers.SignTransaction)
		wallet.POST("/signMessage", handlers.SignMessage)
	}

	return router
}
