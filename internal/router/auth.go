package router

import "github.com/gin-gonic/gin"

func (r *Router) authRoutes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	{
		// Public routes
		auth.POST("/signup", r.authHandler.Signup)
		auth.POST("/login", r.authHandler.Login)
		auth.GET("/refresh_token", r.authHandler.RefreshToken)
		auth.GET("/confirmed_email/:token", r.authHandler.ConfirmEmail)
		auth.POST("/request_email", r.authHandler.RequestEmail)

		protected := auth.Group("")
		protected.Use(r.authMw.RequireAuth())
		{
			protected.POST("/logout", r.authHandler.Logout)
		}
	}
}
