package router

import (
	"net/http"
	"time"

	"comet/internal/config"
	"comet/internal/handlers"
	"comet/internal/middleware"
	"comet/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps is everything the routes need.
type Deps struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	Redis  *redis.Client // nil disables the request rate limiter

	Auth          *services.AuthService
	Users         *services.UserService
	Posts         *services.PostService
	Comments      *services.CommentService
	Planets       *services.PlanetService
	Topics        *services.TopicService
	Moderation    *services.ModerationService
	Notifications *services.NotificationService
	Endorsements  *services.EndorsementService
	Uploads       *services.UploadService
	Reposter      *services.Reposter // nil when disabled
}

// New builds the engine with the middleware chain and every route.
func New(d Deps) *gin.Engine {
	if !d.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(d.Log))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{d.Config.Origin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// refresh token cookie
	store := cookie.NewStore([]byte(d.Config.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(services.RefreshTokenTTL / time.Second),
		HttpOnly: true,
		Secure:   !d.Config.IsDevelopment(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions("jid", store))

	if d.Redis != nil {
		limiter := middleware.NewRedisLimiter(d.Redis, d.Config.RateLimitPerSecond, d.Config.RateLimitBurst)
		r.Use(middleware.RateLimit(limiter, d.Log))
	}
	r.Use(middleware.LoadUser(d.Auth, d.Users))
	r.Use(middleware.Loaders(d.DB))

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Handlers
	authHandler := handlers.NewAuthHandler(d.Auth)
	postHandler := handlers.NewPostHandler(d.Posts, d.Endorsements)
	commentHandler := handlers.NewCommentHandler(d.Comments, d.Endorsements)
	planetHandler := handlers.NewPlanetHandler(d.Planets)
	topicHandler := handlers.NewTopicHandler(d.Topics)
	userHandler := handlers.NewUserHandler(d.Users)
	notificationHandler := handlers.NewNotificationHandler(d.Notifications)
	moderationHandler := handlers.NewModerationHandler(d.Moderation)
	adminHandler := handlers.NewAdminHandler(d.Users, d.Reposter)
	imageHandler := handlers.NewImageHandler(d.Uploads)

	api := r.Group("/api")

	// 公共路由, 登录后个性化 (Public Routes)
	api.POST("/auth/signup", authHandler.SignUp)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/auth/logout", authHandler.Logout)

	api.GET("/posts", postHandler.Home)                    // 首页
	api.GET("/posts/:id", postHandler.Get)                 // 文章详情
	api.GET("/posts/:id/comments", commentHandler.ForPost) // 评论树
	api.GET("/comments/:id", commentHandler.Get)
	api.GET("/search", postHandler.Search)
	api.GET("/title", postHandler.TitleAtURL)

	api.GET("/galaxies", planetHandler.Galaxies)
	api.GET("/galaxies/:galaxy", planetHandler.Galaxy)
	api.GET("/galaxies/:galaxy/posts", postHandler.Galaxy)
	api.GET("/planets", planetHandler.List)
	api.GET("/planets/:planet", planetHandler.Get)
	api.GET("/planets/:planet/exists", planetHandler.Exists)
	api.GET("/planets/:planet/posts", postHandler.Planet)

	api.GET("/topics/popular", topicHandler.Popular)
	api.GET("/topics/search", topicHandler.Search)
	api.GET("/topics/:topic", topicHandler.Get)
	api.GET("/topics/:topic/posts", postHandler.Topic)

	api.GET("/u/:username", userHandler.Profile) // 用户主页
	api.GET("/u/:username/posts", postHandler.User)
	api.GET("/u/:username/comments", commentHandler.User)

	// 受保护路由 (Protected Routes)
	authorized := api.Group("")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/me", authHandler.Me)
		authorized.POST("/me/password", authHandler.ChangePassword)
		authorized.PUT("/me/bio", userHandler.SetBio)
		authorized.POST("/me/avatar", userHandler.UploadProfilePic)
		authorized.GET("/me/blocked", userHandler.Blocked)
		authorized.GET("/me/hidden-posts", postHandler.Hidden)
		authorized.GET("/me/planets", planetHandler.Joined)
		authorized.GET("/me/muted-planets", planetHandler.Muted)
		authorized.GET("/me/topics", topicHandler.Followed)
		authorized.GET("/me/hidden-topics", topicHandler.Hidden)

		authorized.POST("/posts", postHandler.Submit)              // 发布文章
		authorized.PATCH("/posts/:id", postHandler.Edit)           // 编辑文章
		authorized.DELETE("/posts/:id", postHandler.Delete)        // 删除文章
		authorized.POST("/posts/:id/endorse", postHandler.Endorse) // 点赞/取消
		authorized.POST("/posts/:id/view", postHandler.RecordView)
		authorized.POST("/posts/:id/hide", postHandler.Hide)
		authorized.DELETE("/posts/:id/hide", postHandler.Unhide)
		authorized.POST("/posts/:id/report", postHandler.Report)
		authorized.POST("/posts/:id/comments", commentHandler.Submit) // 发表评论

		authorized.PATCH("/comments/:id", commentHandler.Edit)
		authorized.DELETE("/comments/:id", commentHandler.Delete)
		authorized.POST("/comments/:id/endorse", commentHandler.Endorse)

		authorized.POST("/planets", planetHandler.Create)
		authorized.POST("/planets/:planet/join", planetHandler.Join)
		authorized.DELETE("/planets/:planet/join", planetHandler.Leave)
		authorized.POST("/planets/:planet/mute", planetHandler.Mute)
		authorized.DELETE("/planets/:planet/mute", planetHandler.Unmute)

		authorized.POST("/topics/:topic/follow", topicHandler.Follow)
		authorized.DELETE("/topics/:topic/follow", topicHandler.Unfollow)
		authorized.POST("/topics/:topic/hide", topicHandler.Hide)
		authorized.DELETE("/topics/:topic/hide", topicHandler.Unhide)

		authorized.POST("/users/:id/follow", userHandler.Follow)
		authorized.DELETE("/users/:id/follow", userHandler.Unfollow)
		authorized.POST("/users/:id/block", userHandler.Block)
		authorized.DELETE("/users/:id/block", userHandler.Unblock)

		authorized.GET("/notifications", notificationHandler.List) // 我的通知
		authorized.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		authorized.POST("/notifications/:id/read", notificationHandler.Read)    // 标记单条通知为已读
		authorized.POST("/notifications/read-all", notificationHandler.ReadAll) // 全部标记为已读

		authorized.POST("/upload", imageHandler.Upload) // 图片上传
	}

	// 星球管理 (Moderator Routes)
	mod := api.Group("/planets/:planet/mod")
	mod.Use(middleware.AuthRequired(), middleware.PlanetModRequired(d.Planets))
	{
		mod.POST("/posts/:id/remove", moderationHandler.RemovePost)
		mod.POST("/posts/:id/sticky", moderationHandler.Sticky)
		mod.POST("/comments/:id/remove", moderationHandler.RemoveComment)
		mod.GET("/bans", moderationHandler.BannedUsers)
		mod.POST("/bans/:username", moderationHandler.BanUser)
		mod.DELETE("/bans/:username", moderationHandler.UnbanUser)
		mod.POST("/moderators/:username", moderationHandler.AddModerator)
		mod.PUT("/theme-color", moderationHandler.SetThemeColor)
		mod.PUT("/description", moderationHandler.SetDescription)
		mod.PUT("/custom-name", moderationHandler.SetCustomName)
		mod.PUT("/post-types", moderationHandler.SetAllowedPostTypes)
		mod.PUT("/sorts", moderationHandler.SetDefaultSorts)
		mod.POST("/avatar", moderationHandler.UploadAvatar)
		mod.POST("/card", moderationHandler.UploadCard)
		mod.GET("/reports", moderationHandler.Reports)
		mod.POST("/reports/:id/resolve", moderationHandler.ResolveReport)
	}

	// 管理后台 (Admin Routes)
	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/users/:username/ban", adminHandler.BanUser)
		admin.DELETE("/users/:username/ban", adminHandler.UnbanUser)
		admin.POST("/reposter/run", adminHandler.RunReposter)
	}
}
