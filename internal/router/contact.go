package router

import (
	"github.com/Payphone-Digital/contacts-api/internal/constants"
	"github.com/gin-gonic/gin"
)

func (r *Router) contactRoutes(api *gin.RouterGroup) {
	limits := r.Config.RateLimit

	contacts := api.Group("/contacts")
	contacts.Use(r.authMw.RequireAuth())
	{
		contacts.GET("", r.rateLimit(constants.RouteContactsList, limits.ListRequests, limits.ListWindow), r.contactHandler.List)
		contacts.POST("", r.rateLimit(constants.RouteContactsCreate, limits.CreateRequests, limits.CreateWindow), r.contactHandler.Create)

		// Static segment, matched ahead of /:id.
		contacts.GET("/birthdays", r.contactHandler.Birthdays)

		contacts.GET("/:id", r.contactHandler.Get)
		contacts.PUT("/:id", r.contactHandler.Update)
		contacts.DELETE("/:id", r.contactHandler.Delete)
	}
}
