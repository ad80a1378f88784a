package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	app "travelstory/src/app"
	cfg "travelstory/src/configuration"
	"travelstory/src/logging"
	db "travelstory/src/repository"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Dependencies are the collaborators the router is built from. RunServer wires
// the production ones; tests pass in-memory stores.
type Dependencies struct {
	Users       db.Users
	Stories     db.Stories
	Media       MediaStore
	Credentials *app.Credentials
	Logger      *zap.Logger
	Config      *cfg.Properties
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	useJSONFieldNames()

	router := gin.New()
	router.MaxMultipartMemory = deps.Config.Server.MaxUploadBytes
	router.Use(logging.Middleware(deps.Logger))
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		deps.Logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		writeMessage(c, http.StatusInternalServerError, genericErrorMessage)
	}))
	router.Use(cors.New(corsConfig(deps.Config.Server.AllowedOrigins)))

	if deps.Config.Server.Profiling {
		pprof.Register(router)
	}

	handler := NewHandler(deps)

	router.GET("/", handler.Root)
	router.GET("/health", handler.GetHealth)

	router.POST("/create-account", handler.CreateAccount)
	router.POST("/login", handler.Login)
	router.GET("/get-user", handler.Authorize(), handler.GetUser)

	router.POST("/image-upload", handler.PostImage)
	router.DELETE("/delete-image", handler.DeleteImage)
	router.GET("/images/upload/:version/*path", handler.GetImage)

	stories := router.Group("/", handler.Authorize())
	stories.POST("/add-travel-story", handler.AddStory)
	stories.GET("/get-travel-stories", handler.GetAllStories)
	stories.GET("/get-travel-story/:id", handler.GetStory)
	stories.PUT("/edit-story/:id", handler.EditStory)
	stories.DELETE("/delete-story/:id", handler.DeleteStory)
	stories.PUT("/update-is-favourite/:id", handler.UpdateFavourite)
	stories.GET("/search", handler.SearchStories)
	stories.GET("/travel-stories/filter", handler.FilterStories)

	router.NoRoute(func(c *gin.Context) { writeMessage(c, http.StatusNotFound, "Route not found") })
	return router
}

func corsConfig(origins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "HEAD", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "Cache-Control", "User-Agent", logging.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", logging.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}
	config.AllowOrigins = origins
	return config
}

// RunServer connects the stores, serves HTTP and shuts down gracefully on
// SIGINT or SIGTERM. A database that cannot be reached at boot is fatal; an
// unreachable object store only degrades image endpoints.
func RunServer(ctx context.Context, config *cfg.Properties, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := db.Connect(ctx, config.Mongo.URI, config.Mongo.ConnectTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	store := db.NewMongoDB(client.Database(config.Mongo.Database))
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}
	logger.Info("connected to mongo", zap.String("database", config.Mongo.Database))

	clientS3, err := app.NewMinioS3Client(
		config.S3.Host,
		config.S3.AccessKey,
		config.S3.SecretKey,
		config.S3.Bucket,
		config.S3.UseSSL)
	if err != nil {
		return fmt.Errorf("create object store client: %w", err)
	}
	if err := clientS3.EnsureBucket(ctx); err != nil {
		logger.Warn("object store unavailable", zap.String("bucket", config.S3.Bucket), zap.Error(err))
	}

	router := NewRouter(Dependencies{
		Users:       store,
		Stories:     store,
		Media:       app.NewMediaDelegate(clientS3, config.S3.PublicURL, config.S3.Folder, config.S3.PresignTTL),
		Credentials: app.NewCredentials(config.Auth.TokenSecret, config.Auth.TokenTTL, config.Auth.BcryptCost),
		Logger:      logger,
		Config:      config,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", config.Server.Port),
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("mode", config.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
