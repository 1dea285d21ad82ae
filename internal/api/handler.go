// Package api is the HTTP surface of the price tracker: a lookup endpoint
// for one product's price and history, and a trigger for a catalog-wide
// refresh.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pricetracker/internal/catalog"
	"pricetracker/internal/extract"
	"pricetracker/internal/fetcher"
	"pricetracker/internal/history"
	"pricetracker/internal/refresher"
)

// PriceFetcher fetches a single quote
type PriceFetcher interface {
	FetchPrice(ctx context.Context, url string, fallback *fetcher.Quote) (fetcher.Quote, error)
}

// HistoryFetcher fetches a price history series
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, sourceURI string) ([]history.Point, error)
}

// BatchRefresher refreshes the whole catalog
type BatchRefresher interface {
	RefreshAll(ctx context.Context) ([]catalog.TrackedProduct, refresher.Summary, error)
}

// QuoteCache holds the day's live quotes
type QuoteCache interface {
	Get(ctx context.Context, url string) (fetcher.Quote, bool, error)
	Set(ctx context.Context, url string, q fetcher.Quote) error
}

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProductResponse is the body of GET /api/price
type ProductResponse struct {
	ProductData      fetcher.Quote   `json:"productData"`
	ProductGraphData []history.Point `json:"productGraphData"`
}

// Handler serves the API. Cache and Health are optional.
type Handler struct {
	Fetcher   PriceFetcher
	History   HistoryFetcher
	Registry  *extract.Registry
	Refresher BatchRefresher
	Cache     QuoteCache
	Health    Pinger
	Logger    *slog.Logger
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// NewRouter registers the handler's routes on a new gin engine.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/price", h.GetPrice)
		api.POST("/refresh", h.Refresh)
	}

	return r
}

// GetPrice returns the live quote and price history for the url query parameter.
func (h *Handler) GetPrice(c *gin.Context) {
	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter required"})
		return
	}

	ctx := c.Request.Context()

	quote, err := h.quote(ctx, url)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, fetcher.ErrConfiguration):
			status = http.StatusBadRequest
		case errors.Is(err, fetcher.ErrUnsupportedSource):
			status = http.StatusUnprocessableEntity
		}
		h.logger().Warn("GetPrice: fetch failed", "url", url, "error", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	points, err := h.history(ctx, url)
	if err != nil {
		h.logger().Warn("GetPrice: history failed", "url", url, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ProductResponse{
		ProductData:      quote,
		ProductGraphData: points,
	})
}

func (h *Handler) quote(ctx context.Context, url string) (fetcher.Quote, error) {
	if h.Cache != nil {
		q, ok, err := h.Cache.Get(ctx, url)
		if err != nil {
			h.logger().Warn("quote cache read failed", "url", url, "error", err)
		} else if ok {
			return q, nil
		}
	}

	q, err := h.Fetcher.FetchPrice(ctx, url, nil)
	if err != nil {
		return fetcher.Quote{}, err
	}

	if h.Cache != nil {
		if err := h.Cache.Set(ctx, url, q); err != nil {
			h.logger().Warn("quote cache write failed", "url", url, "error", err)
		}
	}
	return q, nil
}

func (h *Handler) history(ctx context.Context, url string) ([]history.Point, error) {
	points := []history.Point{}
	if h.History == nil {
		return points, nil
	}

	ex, ok := h.Registry.Lookup(url)
	if !ok {
		return points, nil
	}
	historyURL, err := ex.HistoryURL(url)
	if err != nil {
		h.logger().Debug("no history endpoint for product", "url", url, "error", err)
		return points, nil
	}

	fetched, err := h.History.FetchHistory(ctx, historyURL)
	if err != nil {
		return nil, err
	}
	if fetched != nil {
		points = fetched
	}
	return points, nil
}

// Refresh runs a refresh pass over the whole catalog.
func (h *Handler) Refresh(c *gin.Context) {
	_, summary, err := h.Refresher.RefreshAll(c.Request.Context())
	if err != nil {
		h.logger().Error("Refresh: refresh pass failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"total":     summary.Total,
		"due":       summary.Due,
		"updated":   summary.Updated,
		"unchanged": summary.Unchanged,
		"fallback":  summary.Fallback,
		"failed":    summary.Failed,
	})
}

// Healthz reports whether storage is reachable.
func (h *Handler) Healthz(c *gin.Context) {
	if h.Health != nil {
		if err := h.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
