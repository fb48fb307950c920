package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar registers a handler's routes on a group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router wires handlers onto the gin engine. Public registrars hang off the
// versioned API root; admin registrars additionally pass the admin middleware
// chain (authentication and role checks).
type Router struct {
	engine          *gin.Engine
	apiVersion      string
	adminMiddleware []gin.HandlerFunc
	public          []RouteRegistrar
	admin           []RouteRegistrar
}

// Option configures the router
type Option func(*Router)

// WithAPIVersion sets the API version prefix
func WithAPIVersion(version string) Option {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAdminMiddleware sets the middleware chain applied to admin routes
func WithAdminMiddleware(mw ...gin.HandlerFunc) Option {
	return func(r *Router) {
		r.adminMiddleware = mw
	}
}

// NewRouter creates a new router
func NewRouter(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds public route registrars
func (r *Router) Register(registrars ...RouteRegistrar) {
	r.public = append(r.public, registrars...)
}

// RegisterAdmin adds admin route registrars
func (r *Router) RegisterAdmin(registrars ...RouteRegistrar) {
	r.admin = append(r.admin, registrars...)
}

// Setup mounts all registered routes under /api/<version>
func (r *Router) Setup() {
	api := r.engine.Group("/api/" + r.apiVersion)

	for _, registrar := range r.public {
		registrar.RegisterRoutes(api)
	}

	admin := api.Group("/admin", r.adminMiddleware...)
	for _, registrar := range r.admin {
		registrar.RegisterRoutes(admin)
	}
}

// Engine returns the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
