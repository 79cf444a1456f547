// Package api exposes the HTTP surface of the pipeline: session issuance,
// audio upload, transcription runs, and the editorial endpoints built on top
// of completed transcripts.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/castpress/castpress/adapters/audio"
	"github.com/castpress/castpress/domain/entities"
	"github.com/castpress/castpress/domain/repositories"
	"github.com/castpress/castpress/internal/auth"
	"github.com/castpress/castpress/internal/websocket"
	"github.com/castpress/castpress/usecase"
)

// maxUploadBytes caps multipart audio uploads. A two hour stereo 16-bit
// 44.1kHz episode is ~1.2GB; most podcast masters arrive mono at 16kHz.
const maxUploadBytes = 512 << 20

const sessionContextKey = "castpress.session"

// Server wires the usecase services into echo handlers.
type Server struct {
	sessions      repositories.SessionRepository
	issuer        *auth.TokenIssuer
	transcription *usecase.TranscriptionService
	correction    *usecase.CorrectionService
	generation    *usecase.GenerationService
	translation   *usecase.TranslationService
	export        *usecase.ExportService
	hub           *websocket.Hub
	logger        *zap.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewServer creates the API server.
func NewServer(
	sessions repositories.SessionRepository,
	issuer *auth.TokenIssuer,
	transcription *usecase.TranscriptionService,
	correction *usecase.CorrectionService,
	generation *usecase.GenerationService,
	translation *usecase.TranslationService,
	export *usecase.ExportService,
	hub *websocket.Hub,
	logger *zap.Logger,
) *Server {
	return &Server{
		sessions:      sessions,
		issuer:        issuer,
		transcription: transcription,
		correction:    correction,
		generation:    generation,
		translation:   translation,
		export:        export,
		hub:           hub,
		logger:        logger,
		cancels:       make(map[string]context.CancelFunc),
	}
}

// InitRoutes registers all API routes.
func (s *Server) InitRoutes(e *echo.Echo) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "castpress-server",
		})
	})

	v1 := e.Group("/api/v1")
	v1.POST("/sessions", s.createSession)

	protected := v1.Group("", s.sessionMiddleware)
	protected.DELETE("/sessions", s.deleteSession)

	protected.POST("/audio", s.uploadAudio)

	protected.POST("/transcriptions", s.startTranscription)
	protected.GET("/transcriptions/:id", s.getTranscription)
	protected.DELETE("/transcriptions/:id", s.cancelTranscription)

	protected.POST("/corrections", s.correctTranscript)
	protected.POST("/angles", s.suggestAngles)

	protected.POST("/articles", s.generateArticle)
	protected.POST("/articles/:id/social", s.socialSnippets)
	protected.POST("/articles/:id/translations", s.translateArticle)
	protected.GET("/articles/:id/export", s.exportArticle)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", s.progressSocket)
}

// sessionMiddleware authenticates the bearer token and loads the session it
// names into the request context.
func (s *Server) sessionMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		session, errResp := s.authenticate(c)
		if errResp != nil {
			return c.JSON(http.StatusUnauthorized, errResp)
		}
		c.Set(sessionContextKey, session)
		return next(c)
	}
}

func (s *Server) authenticate(c echo.Context) (*entities.Session, *ErrorResponse) {
	token := bearerToken(c)
	if token == "" {
		return nil, &ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		}
	}

	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		s.logger.Warn("Request rejected: invalid token", zap.Error(err))
		return nil, &ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		}
	}

	session, err := s.sessions.Get(c.Request().Context(), claims.SessionID)
	if err != nil {
		s.logger.Warn("Request rejected: unknown session",
			zap.String("sessionID", claims.SessionID),
			zap.Error(err))
		return nil, &ErrorResponse{
			Error:   "unknown_session",
			Message: "Session does not exist or has expired",
		}
	}
	return session, nil
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return header[len("Bearer "):]
	}
	return ""
}

func currentSession(c echo.Context) *entities.Session {
	return c.Get(sessionContextKey).(*entities.Session)
}

func (s *Server) createSession(c echo.Context) error {
	session, err := s.sessions.Create(c.Request().Context())
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_creation_failed",
			Message: "Could not create a session",
		})
	}

	token, err := s.issuer.GenerateSessionToken(session.ID)
	if err != nil {
		s.logger.Error("Failed to generate session token",
			zap.String("sessionID", session.ID),
			zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	return c.JSON(http.StatusCreated, CreateSessionResponse{
		SessionID: session.ID,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (s *Server) deleteSession(c echo.Context) error {
	session := currentSession(c)
	if err := s.sessions.Delete(c.Request().Context(), session.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "session_deletion_failed",
			Message: "Could not delete the session",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) uploadAudio(c echo.Context) error {
	session := currentSession(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_file",
			Message: "Multipart field 'file' is required",
		})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "file_too_large",
			Message: fmt.Sprintf("Upload exceeds the %dMB limit", maxUploadBytes>>20),
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unreadable_file",
			Message: "Could not read the uploaded file",
		})
	}
	defer src.Close()

	raw, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unreadable_file",
			Message: "Could not read the uploaded file",
		})
	}

	asset, err := audio.LoadWAV(fileHeader.Filename, raw)
	if err != nil {
		var invalid *entities.InvalidAudioError
		if errors.As(err, &invalid) {
			return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:   "invalid_audio",
				Message: invalid.Reason,
			})
		}
		s.logger.Error("Failed to load audio upload", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "upload_failed",
			Message: "Could not process the uploaded audio",
		})
	}

	session.AddAsset(asset)
	s.logger.Info("Audio asset uploaded",
		zap.String("sessionID", session.ID),
		zap.String("assetID", asset.ID),
		zap.Duration("duration", asset.Info.Duration))

	return c.JSON(http.StatusCreated, UploadResponse{
		AssetID:  asset.ID,
		Filename: asset.Filename,
		Info:     asset.Info,
	})
}

// startTranscription accepts the run and executes it in the background.
// Progress is pushed over the session's websocket; the run status endpoint
// serves the same information on demand.
func (s *Server) startTranscription(c echo.Context) error {
	session := currentSession(c)

	var req StartTranscriptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if req.AssetID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "asset_id is required",
		})
	}

	asset, err := session.Asset(req.AssetID)
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "unknown_asset",
			Message: "No uploaded asset with that ID",
		})
	}

	run := entities.NewPipelineRun(asset.ID)
	session.AddRun(run)

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[run.ID()] = cancel
	s.mu.Unlock()

	s.publishProgress(session.ID, websocket.MessageTypeRunStarted, run)

	go func() {
		defer func() {
			cancel()
			s.mu.Lock()
			delete(s.cancels, run.ID())
			s.mu.Unlock()
		}()

		_, err := s.transcription.Execute(runCtx, run, asset, usecase.TranscribeRequest{
			Language:    req.Language,
			ContextHint: s.correction.TranscriptionPrompt(req.CustomTerms),
			StateChanged: func(state entities.RunState) {
				switch state {
				case entities.RunStateSegmented:
					s.publishProgress(session.ID, websocket.MessageTypeRunSegmented, run)
				case entities.RunStateReassembling:
					s.publishProgress(session.ID, websocket.MessageTypeRunReassembled, run)
				}
			},
			Progress: func(completed, total int, result *entities.TranscriptionResult) {
				msg := websocket.NewProgressMessage(websocket.MessageTypeSegmentDone, run.ID())
				snap := run.Snapshot()
				msg.State = string(snap.State)
				msg.Segments = snap.Segments
				msg.CompletedSegments = completed
				msg.FailedSegments = snap.FailedSegments
				if result.Status == entities.ResultStatusFailure {
					msg.Detail = result.ErrorDetail
				}
				s.hub.Publish(session.ID, msg)
			},
		})
		if err != nil {
			s.logger.Warn("Transcription run failed",
				zap.String("runID", run.ID()),
				zap.Error(err))
			s.publishProgress(session.ID, websocket.MessageTypeRunFailed, run)
			return
		}
		s.publishProgress(session.ID, websocket.MessageTypeRunCompleted, run)
	}()

	return c.JSON(http.StatusAccepted, StartTranscriptionResponse{
		RunID: run.ID(),
		State: string(run.State()),
	})
}

func (s *Server) publishProgress(sessionID string, msgType websocket.MessageType, run *entities.PipelineRun) {
	msg := websocket.NewProgressMessage(msgType, run.ID())
	snap := run.Snapshot()
	msg.State = string(snap.State)
	msg.Segments = snap.Segments
	msg.CompletedSegments = snap.CompletedSegments
	msg.FailedSegments = snap.FailedSegments
	msg.Detail = snap.Error
	s.hub.Publish(sessionID, msg)
}

func (s *Server) getTranscription(c echo.Context) error {
	session := currentSession(c)

	run, err := session.Run(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "unknown_run",
			Message: "No transcription run with that ID",
		})
	}

	return c.JSON(http.StatusOK, RunStatusResponse{
		Run:        run.Snapshot(),
		Transcript: run.Transcript(),
	})
}

func (s *Server) cancelTranscription(c echo.Context) error {
	session := currentSession(c)

	run, err := session.Run(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "unknown_run",
			Message: "No transcription run with that ID",
		})
	}

	s.mu.Lock()
	cancel, ok := s.cancels[run.ID()]
	s.mu.Unlock()
	if !ok {
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "run_not_cancellable",
			Message: "Run already finished",
		})
	}
	cancel()

	s.logger.Info("Transcription run cancelled",
		zap.String("sessionID", session.ID),
		zap.String("runID", run.ID()))
	return c.JSON(http.StatusOK, RunStatusResponse{Run: run.Snapshot()})
}

// resolveTranscript returns the text to operate on: either inline text or the
// full transcript of a completed run.
func (s *Server) resolveTranscript(c echo.Context, runID, text string) (string, error) {
	if text != "" {
		return text, nil
	}
	if runID == "" {
		return "", fmt.Errorf("either run_id or text is required")
	}

	session := currentSession(c)
	run, err := session.Run(runID)
	if err != nil {
		return "", fmt.Errorf("no transcription run with that ID")
	}
	transcript := run.Transcript()
	if transcript == nil {
		return "", fmt.Errorf("run has not completed")
	}
	return transcript.FullText, nil
}

func (s *Server) correctTranscript(c echo.Context) error {
	var req CorrectionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	transcript, err := s.resolveTranscript(c, req.RunID, req.Text)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_transcript",
			Message: err.Error(),
		})
	}

	result, err := s.correction.Correct(c.Request().Context(), transcript, req.CustomTerms)
	if err != nil {
		s.logger.Error("Correction failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "correction_failed",
			Message: "Correction pass failed",
		})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) suggestAngles(c echo.Context) error {
	var req SuggestAnglesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	transcript, err := s.resolveTranscript(c, req.RunID, req.Text)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_transcript",
			Message: err.Error(),
		})
	}

	suggestions, err := s.generation.SuggestAngles(c.Request().Context(), transcript, req.Count)
	if err != nil {
		s.logger.Error("Angle suggestion failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "suggestion_failed",
			Message: "Could not generate angle suggestions",
		})
	}
	return c.JSON(http.StatusOK, SuggestionResponse{Suggestions: suggestions})
}

func (s *Server) generateArticle(c echo.Context) error {
	session := currentSession(c)

	var req GenerateArticleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	transcript, err := s.resolveTranscript(c, req.RunID, req.Text)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_transcript",
			Message: err.Error(),
		})
	}

	article, err := s.generation.GenerateArticle(c.Request().Context(), usecase.GenerateArticleRequest{
		Transcript:         transcript,
		Style:              entities.ArticleStyle(req.Style),
		EditorialAngle:     req.EditorialAngle,
		CustomInstructions: req.CustomInstructions,
	})
	if err != nil {
		s.logger.Error("Article generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "generation_failed",
			Message: "Article generation failed",
		})
	}

	if req.WithSEO {
		seo, err := s.generation.SEOMetadata(c.Request().Context(), article)
		if err != nil {
			// The article is still usable without metadata.
			s.logger.Warn("SEO metadata generation failed",
				zap.String("articleID", article.ID),
				zap.Error(err))
		} else {
			article.SEO = seo
		}
	}

	session.AddArticle(article)
	return c.JSON(http.StatusCreated, article)
}

func (s *Server) socialSnippets(c echo.Context) error {
	session := currentSession(c)

	article, err := session.Article(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "unknown_article",
			Message: "No article with that ID",
		})
	}

	snippets, err := s.generation.SocialSnippets(c.Request().Context(), article)
	if err != nil {
		s.logger.Error("Social snippet generation failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "generation_failed",
			Message: "Could not generate social snippets",
		})
	}
	return c.JSON(http.StatusOK, SuggestionResponse{Suggestions: snippets})
}

func (s *Server) translateArticle(c echo.Context) error {
	session := currentSession(c)

	article, err := session.Article(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "unknown_article",
			Message: "No article with that ID",
		})
	}

	var req TranslateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}
	if len(req.Languages) == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "languages is required",
		})
	}
	for _, lang := range req.Languages {
		if _, ok := usecase.SupportedLanguages[lang]; !ok {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "unsupported_language",
				Message: fmt.Sprintf("Language %q is not supported", lang),
			})
		}
	}

	keywords := req.Keywords
	if len(keywords) == 0 && article.SEO != nil {
		keywords = article.SEO.Keywords
	}

	translations := s.translation.TranslateParallel(c.Request().Context(), article.Content, req.Languages, keywords)
	session.SetTranslations(article.ID, translations)

	return c.JSON(http.StatusOK, TranslateResponse{
		ArticleID:    article.ID,
		Translations: translations,
	})
}

func (s *Server) exportArticle(c echo.Context) error {
	session := currentSession(c)

	article, err := session.Article(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "unknown_article",
			Message: "No article with that ID",
		})
	}

	format := usecase.ExportFormat(c.QueryParam("format"))
	if format == "" {
		format = usecase.ExportFormatMarkdown
	}

	doc, err := s.export.Export(article, session.Translations(article.ID), format)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_format",
			Message: err.Error(),
		})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Blob(http.StatusOK, doc.ContentType, doc.Data)
}

// progressSocket handles WebSocket connections with JWT authentication. The
// token rides in the Authorization header or, for browser clients that cannot
// set headers on websocket upgrades, a query parameter.
func (s *Server) progressSocket(c echo.Context) error {
	token := bearerToken(c)
	if token == "" {
		token = c.QueryParam("token")
	}
	if token == "" {
		s.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required",
		})
	}

	claims, err := s.issuer.ValidateToken(token)
	if err != nil {
		s.logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	if _, err := s.sessions.Get(c.Request().Context(), claims.SessionID); err != nil {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "unknown_session",
			Message: "Session does not exist or has expired",
		})
	}

	s.logger.Info("WebSocket connection authenticated",
		zap.String("sessionID", claims.SessionID))
	return s.hub.Serve(c, claims.SessionID)
}
