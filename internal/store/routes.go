package store

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scottschatz/software-capitalization-sub001/internal/api"
)

// registerRoutes sets up the store API routes.
func registerRoutes(router *gin.Engine, opts ServerOpts) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1", authMiddleware(opts))
	v1.POST("/sync", handleSync(opts.Store))
	v1.GET("/projects", handleListProjects(opts.Store))
	v1.POST("/projects/discover", handleDiscoverProjects(opts.Store))
}

// authMiddleware checks the bearer credential and logs the agent's version
// marker. When no token is configured the store runs open (local use).
func authMiddleware(opts ServerOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if version := c.GetHeader(api.ClientVersionHeader); version != "" {
			opts.Log.WithField("client_version", version).Debug("store: request")
		}
		if opts.Token == "" {
			c.Next()
			return
		}
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token != opts.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, api.ErrorResponse{Error: "invalid or missing bearer token"})
			return
		}
		c.Next()
	}
}

func handleSync(s *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req api.SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		resp, err := s.ApplyBatch(req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func handleListProjects(s *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		developer := c.Query("developer")
		if developer == "" {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "developer query parameter is required"})
			return
		}
		projects, err := s.KnownProjects(developer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, projects)
	}
}

func handleDiscoverProjects(s *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req api.DiscoverRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
			return
		}
		resp, err := s.RegisterProjects(req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
