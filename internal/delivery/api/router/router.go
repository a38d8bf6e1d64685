// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"threads/internal/delivery/api/middleware"
	"threads/internal/delivery/api/router/handler"
	"threads/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	AuthHandler       *handler.AuthHandler
	SessionHandler    *handler.SessionHandler
	ThreadHandler     *handler.ThreadHandler
	UserHandler       *handler.UserHandler
	ProfileHandler    *handler.ProfileHandler
	SessionMiddleware *middleware.SessionMiddleware
	Gatherer          prometheus.Gatherer
}

// router holds all the handlers that need to be registered.
type router struct {
	authHandler       *handler.AuthHandler
	sessionHandler    *handler.SessionHandler
	threadHandler     *handler.ThreadHandler
	userHandler       *handler.UserHandler
	profileHandler    *handler.ProfileHandler
	sessionMiddleware *middleware.SessionMiddleware
	gatherer          prometheus.Gatherer
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		authHandler:       params.AuthHandler,
		sessionHandler:    params.SessionHandler,
		threadHandler:     params.ThreadHandler,
		userHandler:       params.UserHandler,
		profileHandler:    params.ProfileHandler,
		sessionMiddleware: params.SessionMiddleware,
		gatherer:          params.Gatherer,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(r.gatherer)))

	authGroup := e.Group("/auth")
	{
		authGroup.POST("/signup", r.authHandler.SignUp)
		authGroup.POST("/signin", r.authHandler.SignIn)
		authGroup.POST("/signout", r.authHandler.SignOut)
	}

	sessionGroup := e.Group("/session")
	{
		sessionGroup.GET("", r.sessionHandler.GetSnapshot)
		sessionGroup.GET("/events", r.sessionHandler.Events)
		sessionGroup.POST("/refresh", r.sessionHandler.Refresh)
	}

	// Everything below needs a live session
	requireSession := r.sessionMiddleware.RequireSession

	threadGroup := e.Group("/threads", requireSession)
	{
		threadGroup.GET("", r.threadHandler.ListThreads)
		threadGroup.POST("", r.threadHandler.CreateThread)
	}

	userGroup := e.Group("/users", requireSession)
	{
		userGroup.GET("", r.userHandler.ListUsers)
		userGroup.GET("/:id", r.userHandler.GetUser)
		userGroup.GET("/:id/threads", r.userHandler.ListUserThreads)
	}

	profileGroup := e.Group("/profile", requireSession)
	{
		profileGroup.PUT("/bio", r.profileHandler.UpdateBio)
		profileGroup.POST("/image", r.profileHandler.UploadImage)
	}

	e.DELETE("/account", r.profileHandler.DeleteAccount, requireSession)
}
