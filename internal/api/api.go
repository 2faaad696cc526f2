// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ProhorTaim/Egregoria/internal/api/handlers"
	"github.com/ProhorTaim/Egregoria/internal/api/middleware"
	"github.com/ProhorTaim/Egregoria/internal/domain"
)

// FilesPrefix is where assets are mounted; a client's remote base is
// http://<host>:<port>/files.
const FilesPrefix = "/files"

func NewRouter(baseDir string, entries []domain.AssetPath, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger(FilesPrefix, "/health"))
	router.Use(middleware.Recovery())

	corsConfig := cors.Config{
		AllowOrigins:  []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:  []string{"GET", "HEAD", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Accept", "Range"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowAllOrigins = true
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	assetHandler := handlers.NewAssetHandler(baseDir, entries)
	router.GET("/manifest", assetHandler.GetManifest)
	router.GET(FilesPrefix+"/*path", assetHandler.GetAsset)
	router.HEAD(FilesPrefix+"/*path", assetHandler.GetAsset)

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
