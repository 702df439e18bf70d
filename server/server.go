package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"warehouse-stocks/models"
	"warehouse-stocks/scraper/cme"
	"warehouse-stocks/services"
	"warehouse-stocks/storage"
	"warehouse-stocks/utils"
)

const (
	snapshotCacheControl = "s-maxage=300, stale-while-revalidate=600"
	defaultCSVDays       = 30
)

// Server exposes the live snapshot, the stored history and the derived
// insights as JSON.
//
// Endpoints:
//
//	GET /api/snapshot     -> live snapshot, {ok:false,error} on failure
//	GET /api/history      -> stored history points
//	GET /api/history.csv  -> last ?days= (default 30) usable points as CSV
//	GET /api/insights     -> live snapshot + trailing stats + heuristics,
//	                         history-only when the live report fails
type Server struct {
	e        *echo.Echo
	ingestor *services.Ingestor
	insights *services.InsightService
	logger   *utils.Logger
}

// New builds the echo router.
func New(ingestor *services.Ingestor, insights *services.InsightService, logger *utils.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{e: e, ingestor: ingestor, insights: insights, logger: logger}
	e.GET("/api/snapshot", s.handleSnapshot)
	e.GET("/api/history", s.handleHistory)
	e.GET("/api/history.csv", s.handleHistoryCSV)
	e.GET("/api/insights", s.handleInsights)
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.e }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("[server] Listening on %s", addr)
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) handleSnapshot(c echo.Context) error {
	snap, err := s.ingestor.Live(c.Request().Context())
	if err != nil {
		return s.failure(c, err)
	}
	c.Response().Header().Set("Cache-Control", snapshotCacheControl)
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleHistory(c echo.Context) error {
	return c.JSON(http.StatusOK, s.ingestor.History(c.Request().Context()))
}

// handleHistoryCSV exports the last ?days= usable points, 30 by default.
func (s *Server) handleHistoryCSV(c echo.Context) error {
	days := defaultCSVDays
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{OK: false, Error: fmt.Sprintf("invalid days %q", v)})
		}
		days = n
	}

	points := services.TrailingWindow(s.ingestor.History(c.Request().Context()), days)
	var buf bytes.Buffer
	if err := storage.WriteHistoryCSV(&buf, points); err != nil {
		return s.failure(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="comex_silver_%dd.csv"`, days))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// handleInsights serves history-derived analytics even when the live report
// is unavailable; the snapshot is then null and liveError explains why.
func (s *Server) handleInsights(c echo.Context) error {
	ctx := c.Request().Context()
	snap, liveErr := s.ingestor.Live(ctx)
	if liveErr != nil {
		s.logger.Warn("[server] Live report unavailable, serving history-only insights: %v", liveErr)
	}

	report := s.insights.Generate(snap, s.ingestor.History(ctx))
	if liveErr != nil {
		report.LiveError = liveErr.Error()
	}
	return c.JSON(http.StatusOK, report)
}

// failure writes the user-facing error payload. Source outages map to 502,
// everything else to 500.
func (s *Server) failure(c echo.Context, err error) error {
	s.logger.Error("[server] %s %s: %v", c.Request().Method, c.Path(), err)
	status := http.StatusInternalServerError
	var fetchErr *cme.FetchError
	if errors.As(err, &fetchErr) {
		status = http.StatusBadGateway
	}
	return c.JSON(status, models.ErrorResponse{OK: false, Error: err.Error()})
}
