package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"downpour/app/cache"
	"downpour/app/config"
	"downpour/app/database"
	"downpour/app/executor"
	"downpour/app/handler"
	"downpour/app/logger"
	"downpour/app/middleware"
	"downpour/app/network"
	"downpour/app/service"
	"downpour/app/ws"
)

// Server wires the HTTP API around the download services.
type Server struct {
	Config *config.Config
	Logger *logger.Logger

	gin  *gin.Engine
	http *http.Server

	hub      *ws.Hub
	monitor  *network.Monitor
	download *service.DownloadService
	queue    *service.QueueService
	schedule *service.ScheduleService
	media    *service.MediaInfoService
	history  *service.HistoryService
	prefs    *service.PreferencesService
	exec     executor.Executor
}

// New builds the server and all its services.
func New(cfg *config.Config, log *logger.Logger) *Server {
	router := gin.Default()

	s := &Server{
		Config: cfg,
		Logger: log,
		gin:    router,
		http: &http.Server{
			Addr:    ":" + cfg.Server.Port,
			Handler: router,
		},
	}

	s.hub = ws.NewHub(log)
	s.monitor = network.NewMonitor(cfg.Network, log)
	s.exec = executor.NewSimulator()

	mediaCache := cache.NewMediaInfoCache(cfg.Cache.MediaInfoCapacity, cfg.Cache.MediaInfoTTL())
	retry := service.NewRetryCoordinator(cfg.Download, s.monitor)

	s.history = service.NewHistoryService(log, database.DB)
	s.prefs = service.NewPreferencesService(log, database.DB)
	s.download = service.NewDownloadService(log, s.exec, mediaCache, retry, s.history, s.hub,
		time.Duration(cfg.Download.CancelAckTimeoutMs)*time.Millisecond)
	s.queue = service.NewQueueService(log, s.exec, s.hub, s.history, database.DB, cfg.Download.MaxConcurrent,
		time.Duration(cfg.Download.CancelAckTimeoutMs)*time.Millisecond)
	s.schedule = service.NewScheduleService(log, database.DB, s.queue, s.hub,
		time.Duration(cfg.Scheduler.ScanIntervalSeconds)*time.Second)
	s.media = service.NewMediaInfoService(log, s.exec, mediaCache,
		time.Duration(cfg.Cache.PlaylistTTLMinutes)*time.Minute)

	s.monitor.SetOnChange(func(status network.Status) {
		s.hub.Publish("network-status", status)
	})

	s.setupRoutes()
	return s
}

// Start brings up the background services and listens for requests.
func (s *Server) Start() error {
	go s.hub.Run()
	s.monitor.Start()

	if err := s.queue.Load(); err != nil {
		s.Logger.Errorf("queue restore failed: %v", err)
	}
	s.queue.Resume()

	if err := s.schedule.Start(); err != nil {
		return err
	}

	s.Logger.Infof("server listening on %s", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown stops background services and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.schedule.Stop()
	s.monitor.Stop()
	s.hub.Stop()

	if err := database.Close(); err != nil {
		s.Logger.Errorf("database close failed: %v", err)
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	authHandler := handler.NewAuthHandler(s.Config)
	downloadHandler := handler.NewDownloadHandler(s.download, s.exec)
	queueHandler := handler.NewQueueHandler(s.queue)
	scheduleHandler := handler.NewScheduleHandler(s.schedule)
	mediaHandler := handler.NewMediaInfoHandler(s.media, s.queue)
	historyHandler := handler.NewHistoryHandler(s.history)
	prefsHandler := handler.NewPreferencesHandler(s.prefs)
	networkHandler := handler.NewNetworkHandler(s.monitor)

	api := s.gin.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	protected := api.Group("/")
	protected.Use(middleware.JWTAuth(s.Config))
	{
		protected.GET("/me", authHandler.Me)

		download := protected.Group("/download")
		{
			download.GET("/status", downloadHandler.Status)
			download.POST("/start", downloadHandler.Start)
			download.POST("/cancel", downloadHandler.Cancel)
			download.POST("/reset", downloadHandler.Reset)
			download.POST("/validate-folder", downloadHandler.ValidateFolder)
		}

		queue := protected.Group("/queue")
		{
			queue.GET("/", queueHandler.List)
			queue.POST("/", queueHandler.Add)
			queue.POST("/batch", queueHandler.AddBatch)
			queue.POST("/reorder", queueHandler.Reorder)
			queue.POST("/pause", queueHandler.PauseAll)
			queue.POST("/resume", queueHandler.ResumeAll)
			queue.POST("/clear-completed", queueHandler.ClearCompleted)
			queue.POST("/:id/cancel", queueHandler.Cancel)
			queue.POST("/:id/retry", queueHandler.Retry)
			queue.POST("/:id/move-up", queueHandler.MoveUp)
			queue.POST("/:id/move-down", queueHandler.MoveDown)
			queue.DELETE("/:id", queueHandler.Remove)
		}

		schedule := protected.Group("/schedule")
		{
			schedule.GET("/", scheduleHandler.List)
			schedule.POST("/", scheduleHandler.Add)
			schedule.PUT("/:id/enabled", scheduleHandler.SetEnabled)
			schedule.DELETE("/:id", scheduleHandler.Remove)
		}

		media := protected.Group("/media")
		{
			media.GET("/info", mediaHandler.Fetch)
			media.POST("/prefetch", mediaHandler.Prefetch)
			media.GET("/playlist", mediaHandler.Playlist)
			media.POST("/playlist/enqueue", mediaHandler.EnqueuePlaylist)
			media.POST("/cache/clear", mediaHandler.ClearCache)
		}

		history := protected.Group("/history")
		{
			history.GET("/", historyHandler.List)
			history.GET("/stats", historyHandler.Stats)
			history.DELETE("/:id", historyHandler.Delete)
			history.DELETE("/", historyHandler.Clear)
		}

		protected.GET("/preferences", prefsHandler.Get)
		protected.PUT("/preferences", prefsHandler.Save)

		netGroup := protected.Group("/network")
		{
			netGroup.GET("/status", networkHandler.Status)
			netGroup.POST("/online", networkHandler.ReportOnline)
			netGroup.POST("/verify", networkHandler.Verify)
		}
	}

	// websocket event stream; token comes through the query string since
	// browsers cannot set headers on websocket dials
	s.gin.GET("/ws", s.serveWS)
}

func (s *Server) serveWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "token query parameter is required"})
		return
	}
	if _, err := middleware.ValidateWSToken(s.Config, token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": 401, "message": "invalid token"})
		return
	}
	if err := ws.Serve(s.hub, c.Writer, c.Request); err != nil {
		s.Logger.Warnf("websocket upgrade failed: %v", err)
	}
}
