package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/use-agent/pricerank/api/middleware"
	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/pipeline"
)

// NoRankingsMessage is returned with a 404 when the page has no rankings.
const NoRankingsMessage = "no rankings found"

// Runner executes one pipeline run. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, itemID string) (*pipeline.Result, error)
}

// Rankings returns a handler for GET /api/v1/rankings?itemId=<id>.
//
// Outcomes:
//   - rows found      → 200 with the rows
//   - no rankings     → 404, success=true and a message
//   - fetch failure   → 502 (504 on timeout)
//   - storage failure → 500
//
// Concurrent requests for the same id share one run, so two runs never
// write the same artifact paths at once.
func Rankings(r Runner) gin.HandlerFunc {
	var group singleflight.Group

	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.RankingsRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "itemId is required", err), totalStart)
			return
		}
		req.Normalize()
		if req.ItemID == "" {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, "itemId is required", nil), totalStart)
			return
		}

		// ── 2. Run, collapsing duplicate in-flight requests ────────
		// The run outlives a disconnecting client because other callers
		// may be waiting on it; the fetch timeout still bounds it.
		ctx := context.WithoutCancel(c.Request.Context())
		v, err, shared := group.Do(req.ItemID, func() (any, error) {
			return r.Run(ctx, req.ItemID)
		})
		if err != nil {
			slog.Warn("rankings request failed",
				"item_id", req.ItemID,
				"request_id", c.GetString(middleware.RequestIDKey),
				"code", models.CodeOf(err),
				"error", err,
			)
			respondError(c, err, totalStart)
			return
		}
		res := v.(*pipeline.Result)
		if shared {
			slog.Debug("rankings request shared an in-flight run", "item_id", req.ItemID)
		}

		// ── 3. Respond ──────────────────────────────────────────────
		timing := models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
		if res.Empty() {
			c.JSON(http.StatusNotFound, models.RankingsResponse{
				Success:  true,
				ItemID:   res.ItemID,
				Header:   res.Header,
				Rankings: []models.RankingEntry{},
				Message:  NoRankingsMessage,
				Timing:   timing,
			})
			return
		}

		c.JSON(http.StatusOK, models.RankingsResponse{
			Success:  true,
			ItemID:   res.ItemID,
			Header:   res.Header,
			Rankings: res.Entries,
			Timing:   timing,
		})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, start time.Time) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.RankingsResponse{
		Success:  false,
		Rankings: []models.RankingEntry{},
		Error:    scrapeErr.ToDetail(),
		Timing:   models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	default:
		return http.StatusInternalServerError // 500
	}
}
