package routes

import (
	"blog/api/handlers"
	"blog/api/middleware"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Options struct {
	ServiceName     string
	LoginURL        string
	IndexTTL        time.Duration
	TrustUserHeader bool
	CorsOrigins     []string
}

func corsConfig(origins []string) cors.Config {
	conf := cors.DefaultConfig()
	conf.AllowHeaders = append(conf.AllowHeaders, "Authorization", "X-User-ID")
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
	}
	return conf
}

// Setup регистрирует все маршруты блога
func Setup(router *gin.Engine, h *handlers.Handler, opts Options) {
	router.Use(cors.New(corsConfig(opts.CorsOrigins)))
	router.Use(middleware.PrometheusMiddleware(opts.ServiceName))
	router.Use(middleware.Authenticate(h.Users, opts.TrustUserHeader))
	router.NoRoute(handlers.NotFound)

	loginRequired := middleware.LoginRequired(opts.LoginURL)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", h.Health)

	router.GET("/", middleware.CachePage(h.Cache, opts.IndexTTL), h.Index)
	router.GET("/group/:slug/", h.GroupPosts)
	router.GET("/profile/:username/", h.Profile)
	router.GET("/posts/:post_id/", h.PostDetail)

	authorized := router.Group("/", loginRequired)
	{
		authorized.GET("create/", h.PostCreate)
		authorized.POST("create/", h.PostCreate)
		authorized.GET("posts/:post_id/edit/", h.PostEdit)
		authorized.POST("posts/:post_id/edit/", h.PostEdit)
		authorized.GET("posts/:post_id/comment/", h.AddComment)
		authorized.POST("posts/:post_id/comment/", h.AddComment)

		authorized.GET("follow/", h.FollowIndex)
		authorized.GET("profile/:username/follow/", h.ProfileFollow)
		authorized.POST("profile/:username/follow/", h.ProfileFollow)
		authorized.GET("profile/:username/unfollow/", h.ProfileUnfollow)
		authorized.POST("profile/:username/unfollow/", h.ProfileUnfollow)

		authorized.GET("ws/feed/", h.FeedSocket)
	}

	auth := router.Group("/auth/")
	{
		auth.POST("signup/", h.Signup)
		auth.GET("login/", h.LoginForm)
		auth.POST("login/", h.Login)
		auth.POST("logout/", h.Logout)
	}

	admin := router.Group("/admin/", middleware.StaffRequired(opts.LoginURL))
	{
		admin.POST("cache/clear/", h.ClearCache)
	}
}
