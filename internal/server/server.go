// File: internal/server/server.go
// Description: HTTP API surface. Translates requests into audit pipeline
// invocations and maps pipeline errors onto response codes.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"

	"github.com/xkilldash9x/vulnexplain/api/schemas"
	"github.com/xkilldash9x/vulnexplain/internal/config"
	"github.com/xkilldash9x/vulnexplain/internal/repofetch"
	"github.com/xkilldash9x/vulnexplain/internal/reporting"
)

// AuditRunner runs one audit over already-assembled code content.
// Satisfied by *audit.Auditor; mocked in tests.
type AuditRunner interface {
	Run(ctx context.Context, codeContent, contextLabel string) (*schemas.AuditResult, error)
}

// Server owns the fiber app and its collaborators.
type Server struct {
	app     *fiber.App
	cfg     config.ServerConfig
	auditor AuditRunner
	fetcher schemas.RepoFetcher
	logger  *zap.Logger
}

// New assembles the fiber application and registers all routes.
func New(cfg config.ServerConfig, auditor AuditRunner, fetcher schemas.RepoFetcher, logger *zap.Logger) (*Server, error) {
	if auditor == nil {
		return nil, fmt.Errorf("cannot initialize server with nil auditor")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("cannot initialize server with nil repo fetcher")
	}

	app := fiber.New(fiber.Config{
		AppName:      "vulnexplain",
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
	}))

	s := &Server{
		app:     app,
		cfg:     cfg,
		auditor: auditor,
		fetcher: fetcher,
		logger:  logger.Named("server"),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	api := s.app.Group("/api")
	api.Get("/", s.handleIndex)
	api.Post("/audit", s.handleAudit)
	api.Post("/audit-repo", s.handleAuditRepo)
	api.Post("/generate-report", s.handleGenerateReport)
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr))
	return s.app.Listen(s.cfg.Addr)
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the fiber app for in-process testing.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "VulnExplain Security Audit API",
		"status":  "ok",
	})
}

// handleAudit audits an inline code snippet.
func (s *Server) handleAudit(c *fiber.Ctx) error {
	var req schemas.AuditRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, fmt.Errorf("%w: invalid request body", schemas.ErrInvalidRequest))
	}
	// A blank snippet has nothing to audit; reject before the provider call.
	if strings.TrimSpace(req.CodeSnippet) == "" {
		return errorResponse(c, fmt.Errorf("%w: code_snippet must not be empty", schemas.ErrInvalidRequest))
	}

	label := "code snippet"
	if req.Language != "" {
		label = fmt.Sprintf("%s snippet", req.Language)
	}

	result, err := s.auditor.Run(c.UserContext(), req.CodeSnippet, label)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}

// handleAuditRepo audits either a public GitHub repository (github_url form
// field) or an uploaded source file. Exactly one of the two must be present;
// github_url wins when both are sent.
func (s *Server) handleAuditRepo(c *fiber.Ctx) error {
	githubURL := c.FormValue("github_url")

	if githubURL != "" {
		owner, repo, err := repofetch.ParseRepoURL(githubURL)
		if err != nil {
			return errorResponse(c, err)
		}
		content, err := s.fetcher.FetchRepo(c.UserContext(), owner, repo)
		if err != nil {
			return errorResponse(c, err)
		}
		result, err := s.auditor.Run(c.UserContext(), content, fmt.Sprintf("GitHub repository %s/%s", owner, repo))
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(result)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, fmt.Errorf("%w: either github_url or file must be provided", schemas.ErrInvalidRequest))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, fmt.Errorf("%w: unable to open uploaded file", schemas.ErrInvalidRequest))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return errorResponse(c, fmt.Errorf("failed to read uploaded file: %w", err))
	}
	if !utf8.Valid(data) {
		return errorResponse(c, fmt.Errorf("%w: uploaded file must be UTF-8 text", schemas.ErrInvalidRequest))
	}

	result, err := s.auditor.Run(c.UserContext(), string(data), fmt.Sprintf("uploaded file (%s)", fileHeader.Filename))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(result)
}

// handleGenerateReport re-renders a previously returned audit result as a
// downloadable report. The client posts the result back; nothing is loaded
// from storage.
func (s *Server) handleGenerateReport(c *fiber.Ctx) error {
	var result schemas.AuditResult
	if err := c.BodyParser(&result); err != nil {
		return errorResponse(c, fmt.Errorf("%w: invalid audit result payload", schemas.ErrInvalidRequest))
	}

	format := c.Query("format", "html")
	data, err := reporting.Render(format, &result)
	if err != nil {
		return errorResponse(c, fmt.Errorf("%w: %v", schemas.ErrInvalidRequest, err))
	}

	contentType := "text/html; charset=utf-8"
	ext := "html"
	if format == "json" {
		contentType = "application/json"
		ext = "json"
	}
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="security_audit_%s.%s"`, result.ID, ext))
	return c.Send(data)
}

// errorResponse maps pipeline errors onto HTTP status codes. Client-side
// problems (bad input, missing repo, nothing to analyze) are 400s; provider
// and infrastructure failures are 500s.
func errorResponse(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, schemas.ErrInvalidRequest),
		errors.Is(err, schemas.ErrRepoNotFound),
		errors.Is(err, schemas.ErrNoCodeFiles):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"detail": err.Error()})
}
