package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wanxtv/wanx/backend/internal/middleware"
)

var getOrPost = []string{http.MethodGet, http.MethodPost}

// RegisterRoutes mounts every endpoint on r.
func (h *Handlers) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	sms := middleware.NewRateLimiter(middleware.SMSRateLimitConfig())
	identity := middleware.NewRateLimiter(middleware.IdentityRateLimitConfig())
	h.limiters = append(h.limiters, sms, identity)
	smsLimit, identityLimit := sms.Middleware(), identity.Middleware()

	// Anonymous access, with the user attached when a token is sent
	public := r.Group("", h.auth.OptionalAuth())
	{
		public.GET("/videos/current/", h.LatestVideos)
		public.GET("/videos/elite/", h.EliteVideos)
		public.GET("/videos/list", h.PartnerVideos)
		public.GET("/videos/event_id", h.GetVideoByEventID)
		public.GET("/videos/categories", h.VideoCategories)
		public.GET("/videos/category_videos", h.CategoryVideos)
		public.GET("/videos/topics", h.VideoTopics)
		public.GET("/videos/topic_videos", h.TopicVideos)
		public.GET("/videos/editor_videos", h.EditorVideos)
		public.GET("/videos/:vid", h.GetVideo)
		public.GET("/videos/:vid/play", h.PlayVideo)
		public.GET("/videos/:vid/comments", h.VideoComments)
		public.POST("/videos/:vid/update-video", h.UploadCallback)
		public.GET("/share/video/:vid", h.ShareVideo)

		public.GET("/users/:uid/favors", h.UserFavorites)
		public.GET("/users/:uid/videos", h.UserVideos)
		public.GET("/users/:uid/live_videos", h.UserLiveVideos)
		public.GET("/users/:uid/subscriptions", h.UserSubscriptions)

		public.GET("/games/:gid/videos", h.GameVideos)
		public.GET("/games/:gid/live_videos", h.GameLiveVideos)
		public.GET("/games/:gid/popular/videos", h.GamePopularVideos)
		public.GET("/tags/:cid/videos", h.TagVideos)
	}

	// Migu partner surface
	mg := r.Group("/migu", h.auth.OptionalAuth())
	{
		mg.GET("/home/", h.MiguHome)
		mg.GET("/tags/home/", h.MiguTags)
		mg.GET("/tags/:cid/videos/", h.TagVideos)
		mg.GET("/games/:bid/popular/", h.MiguGamePopular)
		mg.GET("/users/:openid/videos/", h.MiguUserVideos)
		mg.GET("/videos/elite/", h.MiguEliteVideos)
		mg.GET("/videos/:vid", h.GetVideo)
		mg.GET("/videos/:vid/comments/", h.MiguVideoComments)
		mg.Match(getOrPost, "/videos/:vid/comments/submit", h.MiguCreateComment)

		mg.Match(getOrPost, "/change_password", identityLimit, h.MiguChangePassword)
		mg.Match(getOrPost, "/register_phone", identityLimit, h.MiguRegister)
		mg.Match(getOrPost, "/reset_password", identityLimit, h.MiguResetPassword)
		mg.Match(getOrPost, "/verify_phone", identityLimit, h.MiguVerifyPhone)
		mg.Match(getOrPost, "/sms_code", smsLimit, h.MiguSMSCode)
		mg.GET("/phone/province", identityLimit, h.PhoneProvince)
	}

	pay := r.Group("/migupay", h.auth.OptionalAuth())
	{
		pay.GET("/user/info", h.MiguPayInfo)
	}

	// Login required
	login := r.Group("", h.auth.RequireAuth())
	{
		login.POST("/videos/new-video", h.CreateVideo)
		login.POST("/videos/:vid/modify-video", h.ModifyVideo)
		login.POST("/videos/:vid/delete", h.DeleteVideo)
		login.POST("/videos/:vid/comments/submit", h.CreateComment)
		login.GET("/users/:uid/followings/videos", h.FollowingVideos)

		login.Match(getOrPost, "/user/opt/favorite-video", h.FavoriteVideo)
		login.Match(getOrPost, "/user/opt/unfavorite-video", h.UnfavoriteVideo)
		login.Match(getOrPost, "/user/opt/like-video", h.LikeVideo)
		login.Match(getOrPost, "/user/opt/unlike-video", h.UnlikeVideo)
		login.POST("/user/report-video", h.ReportVideo)
		login.POST("/user/report", h.Report)
		login.Match(getOrPost, "/user/report/check", h.CheckReport)

		login.Match(getOrPost, "/migu/verify_upgrade", h.MiguVerifyUpgrade)
		login.Match(getOrPost, "/migu/upgrade", identityLimit, h.MiguUpgrade)
		login.Match(getOrPost, "/migu/hf-userid", h.MiguHFUserID)

		login.POST("/migupay/vip/unsubscribe", h.MiguVIPUnsubscribe)
		login.GET("/migupay/money/record", h.MiguMoneyRecords)
		login.GET("/migupay/present/record", h.MiguPresentRecords)
	}
}

// SweepRateLimits drops idle rate limit buckets and returns how many went.
func (h *Handlers) SweepRateLimits() int {
	removed := 0
	for _, rl := range h.limiters {
		removed += rl.Sweep()
	}
	return removed
}
