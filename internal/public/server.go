package public

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/didip/tollbooth"
	"github.com/didip/tollbooth/limiter"
	"github.com/didip/tollbooth_gin"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"linkbio/internal/config"
	"linkbio/internal/domain"
	"linkbio/internal/logging"
	"linkbio/internal/render"
	"linkbio/internal/service"
)

const notFoundPath = "/404"

var notFoundPage = render.Document(`<main class="min-h-screen flex flex-col items-center justify-center gap-4 bg-[#F3FDC4]">
<h1 class="text-3xl font-semibold">Página não encontrada</h1>
<p>O link que você acessou não existe ou foi removido.</p>
</main>`)

// Server is the public surface: published pages, uploaded assets and the
// live preview socket.
type Server struct {
	cfg       config.ServerConfig
	assetsDir string
	pages     *service.PageService
	hub       *PreviewHub
	logger    *zap.Logger
	engine    *gin.Engine
}

// New wires the routes. hub may be nil, in which case /preview is not served.
func New(cfg config.ServerConfig, assetsDir string, pages *service.PageService, hub *PreviewHub, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:       cfg,
		assetsDir: assetsDir,
		pages:     pages,
		hub:       hub,
		logger:    logging.OrNop(logger).Named("public"),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	lim := tollbooth.NewLimiter(s.cfg.RateLimit, &limiter.ExpirableOptions{
		DefaultExpirationTTL: s.cfg.RateLimitTTLDuration(),
		ExpireJobInterval:    time.Minute,
	})
	lim.SetMessage("Muitas requisições. Tente novamente em instantes.")

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())
	r.Use(tollbooth_gin.LimitHandler(lim))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(notFoundPath, func(c *gin.Context) {
		c.Data(http.StatusNotFound, "text/html; charset=utf-8", []byte(notFoundPage))
	})
	if s.assetsDir != "" {
		r.Static("/assets", s.assetsDir)
	}
	if s.hub != nil {
		r.GET("/preview", s.hub.ServePage)
		r.GET("/preview/ws", s.hub.ServeWS)
	}
	r.GET("/:pageId", s.getPage)
	return r
}

func (s *Server) getPage(c *gin.Context) {
	id := c.Param("pageId")
	doc, err := s.pages.Fetch(c.Request.Context(), id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.Redirect(http.StatusFound, notFoundPath)
		return
	case err != nil:
		s.logger.Error("fetch page", zap.String("pageId", id), zap.Error(err))
		c.String(http.StatusInternalServerError, "erro ao carregar a página")
		return
	}
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc.HTML))
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
// and waits for pending view counts.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("public server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeoutDuration())
	defer cancel()
	if s.hub != nil {
		s.hub.Close()
	}
	err := srv.Shutdown(shutdownCtx)
	<-errCh
	s.pages.Wait()
	s.logger.Info("public server stopped")
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
