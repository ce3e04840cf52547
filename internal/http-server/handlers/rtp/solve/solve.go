package solve

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	resp "github.com/joelcab02/Lootea-Demo-sub001/internal/lib/api/response"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/metrics"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/provably_fair"
)

type Request struct {
	Items     []model.ConfigItem `json:"items" validate:"max=1000,dive"`
	BoxPrice  decimal.Decimal    `json:"box_price"`
	TargetRTP float64            `json:"target_rtp"`
}

type Response struct {
	Status int `json:"status"`
	model.AutoConfigResult
	Cached bool `json:"cached"`
}

type Solver interface {
	Solve(items []model.ConfigItem, boxPrice decimal.Decimal, targetRTP float64) model.AutoConfigResult
}

type Allocation struct {
	log       *slog.Logger
	validator *validator.Validate
	solver    Solver
	cache     *cache.Cache
	metrics   *metrics.Metrics
}

func NewAllocation(log *slog.Logger, solver Solver, ttl time.Duration, m *metrics.Metrics) *Allocation {
	return &Allocation{
		log:       log,
		validator: validator.New(),
		solver:    solver,
		cache:     cache.New(ttl, 2*ttl),
		metrics:   m,
	}
}

// New handles POST /rtp/solve. Results are memoized per request body; the solver is
// deterministic so a cached result is identical to a fresh one.
func (s *Allocation) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.rtp.solve.New"

		log := s.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			resp.Render(w, r, resp.Error("failed to decode request body", http.StatusBadRequest))

			return
		}

		if err := s.validator.Struct(req); err != nil {
			log.Error("invalid request", sl.Err(err))

			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				resp.Render(w, r, resp.ValidationError(validateErr))
			} else {
				resp.Render(w, r, resp.Error("invalid request", http.StatusBadRequest))
			}

			return
		}

		key, err := cacheKey(req)
		if err != nil {
			log.Error("failed to build cache key", sl.Err(err))

			resp.Render(w, r, resp.Error("internal error", http.StatusInternalServerError))

			return
		}

		cached := true

		result, ok := s.lookup(key)
		if !ok {
			cached = false
			result = s.solver.Solve(req.Items, req.BoxPrice, req.TargetRTP)

			s.cache.SetDefault(key, result)
		}

		outcome := "success"
		status := http.StatusOK

		if !result.Success {
			outcome = string(result.ErrorKind)
			status = resp.StatusFor(result.ErrorKind)

			log.Info("allocation failed", slog.String("kind", outcome), slog.String("error", result.Error))
		} else {
			log.Info("allocation solved",
				slog.Int("tiers", len(result.Tiers)),
				slog.Float64("actual_rtp", result.ActualRTP),
				slog.Bool("cached", cached))
		}

		if !cached {
			s.metrics.Solves.WithLabelValues(outcome).Inc()
		}

		out := Response{
			Status:           status,
			AutoConfigResult: result,
			Cached:           cached,
		}

		render.Status(r, status)
		render.JSON(w, r, out)
	}
}

func (s *Allocation) lookup(key string) (model.AutoConfigResult, bool) {
	v, ok := s.cache.Get(key)
	if !ok {
		return model.AutoConfigResult{}, false
	}

	result, ok := v.(model.AutoConfigResult)

	return result, ok
}

func cacheKey(req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	return provably_fair.Digest(body), nil
}
