package verify

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	resp "github.com/joelcab02/Lootea-Demo-sub001/internal/lib/api/response"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/metrics"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/provably_fair"
)

type Request struct {
	ClientSeed     string `json:"client_seed" validate:"required"`
	ServerSeed     string `json:"server_seed" validate:"required"`
	ServerSeedHash string `json:"server_seed_hash" validate:"required"`
	Nonce          int64  `json:"nonce" validate:"min=0"`
	ClaimedTicket  int    `json:"claimed_ticket" validate:"required"`
}

type Response struct {
	resp.Response
	model.Verification
}

type Verifier struct {
	log       *slog.Logger
	validator *validator.Validate
	metrics   *metrics.Metrics
}

func NewVerifier(log *slog.Logger, m *metrics.Metrics) *Verifier {
	return &Verifier{
		log:       log,
		validator: validator.New(),
		metrics:   m,
	}
}

// New handles POST /verify. Integrity failures are a 200 with valid=false; only records that
// cannot be replayed are rejected.
func (v *Verifier) New() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

		log := v.log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			resp.Render(w, r, resp.Error("failed to decode request body", http.StatusBadRequest))

			return
		}

		if err := v.validator.Struct(req); err != nil {
			log.Error("invalid request", sl.Err(err))

			var validateErr validator.ValidationErrors
			if errors.As(err, &validateErr) {
				resp.Render(w, r, resp.ValidationError(validateErr))
			} else {
				resp.Render(w, r, resp.Error("invalid request", http.StatusBadRequest))
			}

			return
		}

		result, err := provably_fair.Verify(model.RoundRecord{
			ClientSeed:     req.ClientSeed,
			ServerSeed:     req.ServerSeed,
			ServerSeedHash: req.ServerSeedHash,
			Nonce:          req.Nonce,
			ClaimedTicket:  req.ClaimedTicket,
		})
		if err != nil {
			log.Info("record cannot be replayed", sl.Err(err))
			v.metrics.Verifications.WithLabelValues("rejected").Inc()

			resp.Render(w, r, resp.FromError(err))

			return
		}

		label := "valid"
		if !result.Valid {
			label = string(result.Reason)

			log.Warn("round failed verification",
				slog.String("reason", label),
				slog.Int64("nonce", req.Nonce),
				slog.Int("claimed_ticket", req.ClaimedTicket),
				slog.Int("computed_ticket", result.ComputedTicket))
		}

		v.metrics.Verifications.WithLabelValues(label).Inc()

		render.JSON(w, r, Response{Response: resp.OK(), Verification: result})
	}
}
