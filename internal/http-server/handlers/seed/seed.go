package seed

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	resp "github.com/joelcab02/Lootea-Demo-sub001/internal/lib/api/response"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/lib/logger/sl"
	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

const maxHistoryLimit = 500

//go:generate go run github.com/vektra/mockery/v2@v2.28.2 --name=Ledger
type Ledger interface {
	Issue(ctx context.Context, userID string, clientSeed string) (model.SeedPair, error)
	Active(ctx context.Context, userID string) (model.PublicSeedPair, error)
	Rotate(ctx context.Context, userID string) (model.Rotation, error)
	SetClientSeed(ctx context.Context, userID string, clientSeed string) error
	Roll(ctx context.Context, userID string) (model.RoundRecord, error)
	History(ctx context.Context, userID string, limit int) ([]model.PublicSeedPair, error)
}

type IssueRequest struct {
	ClientSeed string `json:"client_seed" validate:"max=256"`
}

type ClientSeedRequest struct {
	ClientSeed string `json:"client_seed" validate:"required,max=256"`
}

type PairResponse struct {
	resp.Response
	Pair model.PublicSeedPair `json:"pair"`
}

type RotateResponse struct {
	resp.Response
	Revealed model.PublicSeedPair `json:"revealed"`
	Next     model.PublicSeedPair `json:"next"`
}

type RoundResponse struct {
	resp.Response
	Round model.RoundRecord `json:"round"`
}

type HistoryResponse struct {
	resp.Response
	Pairs []model.PublicSeedPair `json:"pairs"`
}

type Seed struct {
	log       *slog.Logger
	validator *validator.Validate
	ledger    Ledger
}

func NewSeed(log *slog.Logger, ledger Ledger) *Seed {
	return &Seed{
		log:       log,
		validator: validator.New(),
		ledger:    ledger,
	}
}

func (s *Seed) Routes(router chi.Router) {
	router.Route("/seeds/{user_id}", func(r chi.Router) {
		r.Post("/", s.Issue())
		r.Get("/", s.Active())
		r.Post("/rotate", s.Rotate())
		r.Put("/client-seed", s.SetClientSeed())
		r.Post("/rounds", s.Roll())
		r.Get("/history", s.History())
	})
}

func (s *Seed) Issue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.seed.Issue"

		log := s.requestLog(r, op)

		var req IssueRequest

		// The body is optional: no body means a generated client seed.
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			log.Error("failed to decode request body", sl.Err(err))

			resp.Render(w, r, resp.Error("failed to decode request body", http.StatusBadRequest))

			return
		}

		if !s.validate(w, r, log, req) {
			return
		}

		pair, err := s.ledger.Issue(r.Context(), chi.URLParam(r, "user_id"), req.ClientSeed)
		if err != nil {
			s.fail(w, r, log, "failed to issue seed pair", err)

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, PairResponse{
			Response: resp.Response{Status: http.StatusCreated},
			Pair:     pair.Public(),
		})
	}
}

func (s *Seed) Active() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.seed.Active"

		log := s.requestLog(r, op)

		pair, err := s.ledger.Active(r.Context(), chi.URLParam(r, "user_id"))
		if err != nil {
			s.fail(w, r, log, "failed to load active seed pair", err)

			return
		}

		render.JSON(w, r, PairResponse{Response: resp.OK(), Pair: pair})
	}
}

func (s *Seed) Rotate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.seed.Rotate"

		log := s.requestLog(r, op)

		rotation, err := s.ledger.Rotate(r.Context(), chi.URLParam(r, "user_id"))
		if err != nil {
			s.fail(w, r, log, "failed to rotate seed pair", err)

			return
		}

		render.JSON(w, r, RotateResponse{
			Response: resp.OK(),
			Revealed: rotation.Revealed.Public(),
			Next:     rotation.Next.Public(),
		})
	}
}

func (s *Seed) SetClientSeed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.seed.SetClientSeed"

		log := s.requestLog(r, op)

		var req ClientSeedRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode request body", sl.Err(err))

			resp.Render(w, r, resp.Error("failed to decode request body", http.StatusBadRequest))

			return
		}

		if !s.validate(w, r, log, req) {
			return
		}

		userID := chi.URLParam(r, "user_id")

		if err := s.ledger.SetClientSeed(r.Context(), userID, req.ClientSeed); err != nil {
			s.fail(w, r, log, "failed to set client seed", err)

			return
		}

		pair, err := s.ledger.Active(r.Context(), userID)
		if err != nil {
			s.fail(w, r, log, "failed to load active seed pair", err)

			return
		}

		render.JSON(w, r, PairResponse{Response: resp.OK(), Pair: pair})
	}
}

func (s *Seed) Roll() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.seed.Roll"

		log := s.requestLog(r, op)

		round, err := s.ledger.Roll(r.Context(), chi.URLParam(r, "user_id"))
		if err != nil {
			s.fail(w, r, log, "failed to roll", err)

			return
		}

		log.Info("round rolled", slog.Int64("nonce", round.Nonce), slog.Int("ticket", round.ClaimedTicket))

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, RoundResponse{
			Response: resp.Response{Status: http.StatusCreated},
			Round:    round,
		})
	}
}

func (s *Seed) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.seed.History"

		log := s.requestLog(r, op)

		limit := 0

		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 || n > maxHistoryLimit {
				resp.Render(w, r, resp.Error("limit must be an integer in [0, 500]", http.StatusBadRequest))

				return
			}

			limit = n
		}

		pairs, err := s.ledger.History(r.Context(), chi.URLParam(r, "user_id"), limit)
		if err != nil {
			s.fail(w, r, log, "failed to load history", err)

			return
		}

		if pairs == nil {
			pairs = []model.PublicSeedPair{}
		}

		render.JSON(w, r, HistoryResponse{Response: resp.OK(), Pairs: pairs})
	}
}

func (s *Seed) requestLog(r *http.Request, op string) *slog.Logger {
	return s.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("user_id", chi.URLParam(r, "user_id")),
	)
}

func (s *Seed) validate(w http.ResponseWriter, r *http.Request, log *slog.Logger, req interface{}) bool {
	err := s.validator.Struct(req)
	if err == nil {
		return true
	}

	log.Error("invalid request", sl.Err(err))

	var validateErr validator.ValidationErrors
	if errors.As(err, &validateErr) {
		resp.Render(w, r, resp.ValidationError(validateErr))
	} else {
		resp.Render(w, r, resp.Error("invalid request", http.StatusBadRequest))
	}

	return false
}

func (s *Seed) fail(w http.ResponseWriter, r *http.Request, log *slog.Logger, msg string, err error) {
	out := resp.FromError(err)

	if out.Status >= http.StatusInternalServerError {
		log.Error(msg, sl.Err(err))
	} else {
		log.Info(msg, sl.Err(err))
	}

	resp.Render(w, r, out)
}
