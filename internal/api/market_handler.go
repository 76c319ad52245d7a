package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stockaggr/internal/cache"
	"stockaggr/internal/config"
	"stockaggr/internal/datasource"
	apperrors "stockaggr/internal/errors"
	"stockaggr/internal/logging"
	"stockaggr/internal/monitor"
)

// MarketHandler serves the market data endpoints. Responses are cached
// with per-category TTLs so a burst of identical requests costs one
// upstream call.
type MarketHandler struct {
	manager  *datasource.Manager
	cache    *cache.ResponseCache
	cacheCfg *config.CacheConfig
	metrics  *monitor.Metrics
	log      *logging.Logger
}

// NewMarketHandler creates the market data handler
func NewMarketHandler(manager *datasource.Manager, respCache *cache.ResponseCache, cacheCfg *config.CacheConfig, metrics *monitor.Metrics, log *logging.Logger) *MarketHandler {
	return &MarketHandler{
		manager:  manager,
		cache:    respCache,
		cacheCfg: cacheCfg,
		metrics:  metrics,
		log:      log,
	}
}

// fetchCached serves key from the response cache, falling back to fetch
// and caching the result.
func fetchCached[T any](h *MarketHandler, ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if h.cache != nil {
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			h.metrics.RecordCacheHit("response")
			return cached, nil
		}
		h.metrics.RecordCacheMiss()
	}

	result, err := fetch(ctx)
	if err != nil {
		return result, err
	}
	if h.cache != nil {
		_ = h.cache.Set(ctx, key, result, ttl)
	}
	return result, nil
}

// respond writes the standard success envelope
func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

// handleFetchError maps manager errors to HTTP responses
func (h *MarketHandler) handleFetchError(c *gin.Context, err error) {
	if datasource.IsExhaustion(err) {
		respondError(c, apperrors.WrapError(err, apperrors.ErrCodeSourceExhausted, "all data sources exhausted"))
		return
	}
	respondError(c, mapError(err))
}

// GetKline handles GET /api/v1/market/kline
func (h *MarketHandler) GetKline(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "symbol is required", nil))
		return
	}
	period := c.DefaultQuery("period", "daily")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "120"))

	key := fmt.Sprintf("kline:%s:%s:%d", symbol, period, limit)
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.KlineTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetKline(ctx, symbol, period, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetQuotes handles GET /api/v1/market/quotes
func (h *MarketHandler) GetQuotes(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "symbols is required", nil))
		return
	}
	symbols := strings.Split(raw, ",")

	key := "quotes:" + raw
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.QuoteTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetQuotes(ctx, symbols)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetIndices handles GET /api/v1/market/indices
func (h *MarketHandler) GetIndices(c *gin.Context) {
	result, err := fetchCached(h, c.Request.Context(), "indices", h.cacheCfg.QuoteTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetIndices(ctx)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetSpotStatistics handles GET /api/v1/market/spot
func (h *MarketHandler) GetSpotStatistics(c *gin.Context) {
	result, err := fetchCached(h, c.Request.Context(), "spot", h.cacheCfg.QuoteTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetSpotStatistics(ctx)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetIndustryRank handles GET /api/v1/market/industry-rank
func (h *MarketHandler) GetIndustryRank(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	key := fmt.Sprintf("industry_rank:%d", limit)
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetIndustryRank(ctx, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetConceptRank handles GET /api/v1/market/concept-rank
func (h *MarketHandler) GetConceptRank(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	key := fmt.Sprintf("concept_rank:%d", limit)
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetConceptRank(ctx, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetSectorStocks handles GET /api/v1/market/sectors/:code/stocks
func (h *MarketHandler) GetSectorStocks(c *gin.Context) {
	code := c.Param("code")

	key := "sector_stocks:" + code
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetSectorStocks(ctx, code)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetMoneyFlow handles GET /api/v1/market/money-flow/:symbol
func (h *MarketHandler) GetMoneyFlow(c *gin.Context) {
	symbol := c.Param("symbol")

	key := "money_flow:" + symbol
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetMoneyFlow(ctx, symbol)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetMoneyFlowRank handles GET /api/v1/market/money-flow-rank
func (h *MarketHandler) GetMoneyFlowRank(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	key := fmt.Sprintf("money_flow_rank:%d", limit)
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetMoneyFlowRank(ctx, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetNorthFlow handles GET /api/v1/market/north-flow
func (h *MarketHandler) GetNorthFlow(c *gin.Context) {
	result, err := fetchCached(h, c.Request.Context(), "north_flow", h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetNorthFlow(ctx)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// parseDate reads the date query parameter, defaulting to today
func parseDate(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		return time.Now(), nil
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return date, nil
}

// GetLongTiger handles GET /api/v1/market/long-tiger
func (h *MarketHandler) GetLongTiger(c *gin.Context) {
	date, err := parseDate(c)
	if err != nil {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, err.Error(), nil))
		return
	}

	key := "long_tiger:" + date.Format("2006-01-02")
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetLongTiger(ctx, date)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetLimitUpPool handles GET /api/v1/market/limit-up-pool
func (h *MarketHandler) GetLimitUpPool(c *gin.Context) {
	date, err := parseDate(c)
	if err != nil {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, err.Error(), nil))
		return
	}

	key := "limit_up:" + date.Format("2006-01-02")
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetLimitUpPool(ctx, date)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetLimitDownPool handles GET /api/v1/market/limit-down-pool
func (h *MarketHandler) GetLimitDownPool(c *gin.Context) {
	date, err := parseDate(c)
	if err != nil {
		respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, err.Error(), nil))
		return
	}

	key := "limit_down:" + date.Format("2006-01-02")
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetLimitDownPool(ctx, date)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetVolumeRatioRank handles GET /api/v1/market/volume-ratio-rank
func (h *MarketHandler) GetVolumeRatioRank(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	key := fmt.Sprintf("volume_ratio:%d", limit)
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetVolumeRatioRank(ctx, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetBoardDict handles GET /api/v1/market/boards
func (h *MarketHandler) GetBoardDict(c *gin.Context) {
	result, err := fetchCached(h, c.Request.Context(), "board_dict", time.Hour,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetBoardDict(ctx)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetEconomicCalendar handles GET /api/v1/market/economic-calendar
func (h *MarketHandler) GetEconomicCalendar(c *gin.Context) {
	now := time.Now()
	from, to := now.AddDate(0, 0, -7), now.AddDate(0, 0, 7)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "invalid from date", nil))
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			respondError(c, apperrors.NewAppError(apperrors.ErrCodeInvalidInput, "invalid to date", nil))
			return
		}
		to = parsed
	}

	key := fmt.Sprintf("economic:%s:%s", from.Format("20060102"), to.Format("20060102"))
	result, err := fetchCached(h, c.Request.Context(), key, time.Hour,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetEconomicCalendar(ctx, from, to)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetInteractiveQA handles GET /api/v1/market/interactive-qa/:symbol
func (h *MarketHandler) GetInteractiveQA(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	key := fmt.Sprintf("qa:%s:%d", symbol, limit)
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetInteractiveQA(ctx, symbol, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetResearchReports handles GET /api/v1/market/research-reports/:symbol
func (h *MarketHandler) GetResearchReports(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	key := fmt.Sprintf("reports:%s:%d", symbol, limit)
	result, err := fetchCached(h, c.Request.Context(), key, time.Hour,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetResearchReports(ctx, symbol, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}

// GetNotices handles GET /api/v1/market/notices/:symbol
func (h *MarketHandler) GetNotices(c *gin.Context) {
	symbol := c.Param("symbol")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	key := fmt.Sprintf("notices:%s:%d", symbol, limit)
	result, err := fetchCached(h, c.Request.Context(), key, h.cacheCfg.RankTTL,
		func(ctx context.Context) (interface{}, error) {
			return h.manager.GetNotices(ctx, symbol, limit)
		})
	if err != nil {
		h.handleFetchError(c, err)
		return
	}
	respond(c, result)
}
