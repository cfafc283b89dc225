package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"

	"KOLStats/internal/domain/models"
	domrepo "KOLStats/internal/domain/repository"
	"KOLStats/internal/usecase"
	xhttp "KOLStats/pkg/http"
	xlogger "KOLStats/pkg/logger"
)

// APIObserver records per-endpoint latency and failures.
type APIObserver interface {
	ObserveAPI(endpoint string, seconds float64, failed bool)
}

// ChannelMetricsHandler serves resolved channel metrics over REST.
type ChannelMetricsHandler struct {
	logger   *xlogger.Logger
	uc       *usecase.ChannelMetricsUseCase
	observer APIObserver
}

func NewChannelMetricsHandler(logger *xlogger.Logger, uc *usecase.ChannelMetricsUseCase, observer APIObserver) *ChannelMetricsHandler {
	return &ChannelMetricsHandler{logger: logger, uc: uc, observer: observer}
}

func (h *ChannelMetricsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/channels/:channel_id/metrics", h.Metrics)
	g.GET("/channels/:channel_id/performance", h.Performance)
	g.GET("/channels/:channel_id/periods", h.Periods)
	g.GET("/timeframes", h.Timeframes)
}

func (h *ChannelMetricsHandler) Metrics(c echo.Context) error {
	start := time.Now()
	req := &models.MetricsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.observe("metrics", start, true)
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetMetrics(c.Request().Context(), usecase.MetricsParams{
		ChannelID: req.ChannelID,
		Period:    req.Period,
		Quarter:   req.Quarter,
		Timeframe: req.Timeframe,
		Sentiment: req.Sentiment,
		Travel:    req.Travel,
	})
	h.observe("metrics", start, err != nil)
	if err != nil {
		return h.fail(c, "metrics", req.ChannelID, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}

func (h *ChannelMetricsHandler) Performance(c echo.Context) error {
	start := time.Now()
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.observe("performance", start, true)
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetPerformanceTable(c.Request().Context(), usecase.PerformanceParams{
		ChannelID: req.ChannelID,
		Periods:   usecase.ParsePeriods(req.Periods),
		Quarter:   req.Quarter,
		Timeframe: req.Timeframe,
		Sentiment: req.Sentiment,
	})
	h.observe("performance", start, err != nil)
	if err != nil {
		return h.fail(c, "performance", req.ChannelID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChannelMetricsHandler) Periods(c echo.Context) error {
	start := time.Now()
	req := &models.ChannelRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		h.observe("periods", start, true)
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetPeriods(c.Request().Context(), req.ChannelID)
	h.observe("periods", start, err != nil)
	if err != nil {
		return h.fail(c, "periods", req.ChannelID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *ChannelMetricsHandler) Timeframes(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.SuccessResponse(c, h.uc.Timeframes())
}

func (h *ChannelMetricsHandler) fail(c echo.Context, endpoint, channelID string, err error) error {
	appErr := MapError(err)
	if appErr.Status >= 500 {
		h.logger.Error(endpoint+" usecase error",
			xlogger.String("channel_id", channelID),
			xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func (h *ChannelMetricsHandler) observe(endpoint string, start time.Time, failed bool) {
	if h.observer != nil {
		h.observer.ObserveAPI(endpoint, time.Since(start).Seconds(), failed)
	}
}

// MapError translates use case errors into transport errors.
func MapError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, usecase.ErrInvalidQuery):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, domrepo.ErrChannelNotFound):
		return xhttp.NotFoundError("channel not found").WithError(err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return xhttp.ServiceUnavailableError("statistics backend unavailable").WithError(err)
	default:
		return xhttp.BadGatewayError("statistics backend error").WithError(err)
	}
}
