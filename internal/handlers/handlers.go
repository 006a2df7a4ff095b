package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mdobak/go-xerrors"
	"go.uber.org/zap"

	"github.com/anvishah1/ForReal/internal/classifier"
	"github.com/anvishah1/ForReal/internal/game"
	"github.com/anvishah1/ForReal/internal/handoff"
	"github.com/anvishah1/ForReal/internal/logging"
	"github.com/anvishah1/ForReal/internal/sessions"
	"github.com/anvishah1/ForReal/internal/upload"
)

const (
	// MaxUploadSize caps upload request bodies: the file limit plus room for
	// multipart framing.
	MaxUploadSize = upload.MaxFileSize + 1<<20

	// SessionHeader carries the session id in both directions.
	SessionHeader = "X-Session-ID"

	sessionKey = "session"

	storeFailedMessage = "Failed to save the analysis result"
)

// HealthChecker reports the state of the classification service.
type HealthChecker interface {
	Health(ctx context.Context) (*classifier.Health, error)
}

// Dependencies are the collaborators of the HTTP handlers.
type Dependencies struct {
	Sessions   *sessions.Registry
	Results    handoff.Store
	Classifier HealthChecker
	// GameImagesDir, when set, is served under /game-images.
	GameImagesDir string
	Logger        *zap.Logger
}

type guessRequest struct {
	IsAI *bool `json:"is_ai" binding:"required"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router.
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("handlers")

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/classifier", func(c *gin.Context) {
		health, err := deps.Classifier.Health(c.Request.Context())
		if err != nil {
			logger.Warn("classifier health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, health)
	})

	if deps.GameImagesDir != "" {
		router.Static("/game-images", deps.GameImagesDir)
	}

	router.GET("/results/:token", func(c *gin.Context) {
		bundle, err := deps.Results.Take(c.Request.Context(), c.Param("token"))
		if errors.Is(err, handoff.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}
		if err != nil {
			logger.Error("failed to load result", zap.Error(xerrors.New(err)))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load result"})
			return
		}
		c.JSON(http.StatusOK, bundle)
	})

	sessioned := router.Group("", withSession(deps.Sessions))
	registerUploadRoutes(sessioned, deps, logger)
	registerGameRoutes(sessioned.Group("/game"))
}

func registerUploadRoutes(router *gin.RouterGroup, deps Dependencies, logger *zap.Logger) {
	router.GET("/upload", func(c *gin.Context) {
		c.JSON(http.StatusOK, sessionFrom(c).Upload.Snapshot())
	})

	router.POST("/upload", func(c *gin.Context) {
		sess := sessionFrom(c).Upload
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

		file, err := readFilePart(c.Request)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) || c.Request.ContentLength > MaxUploadSize {
				if err := sess.Reject(upload.ReasonTooLarge); err != nil {
					c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": sess.Snapshot()})
					return
				}
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{
					"error":   upload.ReasonTooLarge.Message(),
					"session": sess.Snapshot(),
				})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}

		outcome, err := sess.Select(file)
		if err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": sess.Snapshot()})
			return
		}
		if !outcome.Accepted() {
			status := http.StatusUnsupportedMediaType
			if outcome.Rejection == upload.ReasonTooLarge {
				status = http.StatusRequestEntityTooLarge
			}
			c.JSON(status, gin.H{"error": outcome.Rejection.Message(), "session": sess.Snapshot()})
			return
		}
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	router.DELETE("/upload", func(c *gin.Context) {
		sess := sessionFrom(c).Upload
		if err := sess.Clear(); err != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "analysis in progress", "session": sess.Snapshot()})
			return
		}
		c.JSON(http.StatusOK, sess.Snapshot())
	})

	router.POST("/upload/submit", func(c *gin.Context) {
		entry := sessionFrom(c)
		sess := entry.Upload

		// Detached from the request: a dropped client does not abort the
		// classification, the classifier client timeout bounds it.
		ctx := context.WithoutCancel(c.Request.Context())

		bundle, err := sess.Submit(ctx)
		if errors.Is(err, upload.ErrInvalidTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": "no image ready for analysis", "session": sess.Snapshot()})
			return
		}
		if err != nil {
			c.JSON(statusForClassifierError(err), gin.H{
				"error":   classifier.UserMessage(err),
				"kind":    classifier.KindOf(err),
				"session": sess.Snapshot(),
			})
			return
		}

		opLogger := logging.WithOperation(logger, "handlers.publish_result", entry.ID)
		token, err := deps.Results.Put(ctx, bundle)
		if err != nil {
			opLogger.Error("failed to publish result", zap.Error(xerrors.New(err)))
			if err := sess.Fail(storeFailedMessage); err != nil {
				opLogger.Warn("session changed before failure was recorded", zap.Error(err))
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": storeFailedMessage, "session": sess.Snapshot()})
			return
		}
		if _, err := sess.Handoff(); err != nil {
			opLogger.Warn("session changed before handoff", zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{"token": token, "result": bundle})
	})
}

func registerGameRoutes(router *gin.RouterGroup) {
	router.GET("", func(c *gin.Context) {
		c.JSON(http.StatusOK, sessionFrom(c).Game.State())
	})

	router.POST("/start", gameAction(func(e *game.Engine) (game.State, error) { return e.Start() }))
	router.POST("/next", gameAction(func(e *game.Engine) (game.State, error) { return e.Next() }))
	router.POST("/reset", gameAction(func(e *game.Engine) (game.State, error) { return e.Reset() }))
	router.POST("/close", gameAction(func(e *game.Engine) (game.State, error) { return e.Close(), nil }))

	router.POST("/guess", func(c *gin.Context) {
		var req guessRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "is_ai is required"})
			return
		}
		respondGame(c, func(e *game.Engine) (game.State, error) { return e.Guess(*req.IsAI) })
	})
}

func gameAction(fn func(*game.Engine) (game.State, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondGame(c, fn)
	}
}

func respondGame(c *gin.Context, fn func(*game.Engine) (game.State, error)) {
	state, err := fn(sessionFrom(c).Game)
	if errors.Is(err, game.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "game": state})
		return
	}
	c.JSON(http.StatusOK, state)
}

// readFilePart streams the request body up to the "file" part.
func readFilePart(r *http.Request) (*upload.File, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return upload.FromPart(part)
		}
	}
}

func withSession(reg *sessions.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		entry := reg.Get(c.GetHeader(SessionHeader))
		c.Header(SessionHeader, entry.ID)
		c.Set(sessionKey, entry)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *sessions.Entry {
	return c.MustGet(sessionKey).(*sessions.Entry)
}

func statusForClassifierError(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, classifier.ErrUnreachable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
