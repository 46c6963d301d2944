package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"forum/auth"
	"forum/comments"
	"forum/common"
	"forum/posts"
)

// PublicPrefixes are served without a bearer token. /auth/me authenticates
// on its own route.
var PublicPrefixes = []string{"/auth", "/health"}

// NewRouter wires middleware in pipeline order: recovery, request id,
// logging, CORS (preflight ends here), bearer token, then the modules.
func NewRouter(db *gorm.DB, cfg common.Config) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(
		common.Recovery(),
		common.RequestID(),
		gin.Logger(),
		common.CORS(cfg.CORSOrigins),
	)

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	router.Use(auth.RequireToken(tokens, PublicPrefixes...))

	router.NoRoute(func(c *gin.Context) {
		common.RespondError(c, common.NotFound("Not found"))
	})

	router.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			common.RespondError(c, common.Internal("database ping failed", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authModule := auth.NewAuthModule(db, tokens)
	authModule.RegisterRoutes(router)

	postsModule := posts.NewPostsModule(db)
	postsModule.RegisterRoutes(router)

	commentsModule := comments.NewCommentsModule(db)
	commentsModule.RegisterRoutes(router)

	return router
}
