package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appctx "serviceshop/internal/core/context"
	"serviceshop/internal/infrastructure/http/v1/middleware"
)

// access lists the roles allowed on a route.
type access []string

var (
	staff     = access{appctx.RoleAdmin, appctx.RoleTechnician}
	adminOnly = access{appctx.RoleAdmin}
	anyone    = access{appctx.RoleAdmin, appctx.RoleTechnician, appctx.RoleCustomer}
)

// route is one endpoint of a resource group.
type route struct {
	method  string
	path    string
	roles   access
	handler gin.HandlerFunc
}

// mount registers routes on group, each behind its role check.
func mount(group *gin.RouterGroup, routes ...route) {
	for _, r := range routes {
		group.Handle(r.method, r.path, middleware.RequireRole(r.roles...), r.handler)
	}
}

// crudHandler is a resource handler with the five standard actions.
type crudHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// crudRoutes returns the standard routes of a resource.
func crudRoutes(h crudHandler, read, write access) []route {
	return []route{
		{http.MethodGet, "", read, h.List},
		{http.MethodPost, "", write, h.Create},
		{http.MethodGet, "/:id", read, h.Get},
		{http.MethodPut, "/:id", write, h.Update},
		{http.MethodDelete, "/:id", write, h.Delete},
	}
}
