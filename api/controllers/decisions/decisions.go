package decisions

import (
	"context"
	"math"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/donorjournal-backend/api/middleware"
	"github.com/angelmondragon/donorjournal-backend/api/responses"
	"github.com/angelmondragon/donorjournal-backend/api/validators"
	internaldecisions "github.com/angelmondragon/donorjournal-backend/internal/decisions"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
	"github.com/angelmondragon/donorjournal-backend/pkg/retry"
)

type createDecisionRequest struct {
	MembershipID uuid.UUID             `json:"journal_contact_id" validate:"required"`
	Amount       *decimal.Decimal      `json:"amount" validate:"required,money"`
	Cadence      enums.DecisionCadence `json:"cadence" validate:"required"`
	Status       enums.DecisionStatus  `json:"status,omitempty"`
}

type updateDecisionRequest struct {
	Amount  *decimal.Decimal       `json:"amount,omitempty" validate:"omitempty,money"`
	Cadence *enums.DecisionCadence `json:"cadence,omitempty"`
	Status  *enums.DecisionStatus  `json:"status,omitempty"`
}

// Create records the first decision for a journal contact.
func Create(svc internaldecisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "decision service unavailable"))
			return
		}

		var payload createDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Create(r.Context(), internaldecisions.CreateInput{
			MembershipID: payload.MembershipID,
			Amount:       *payload.Amount,
			Cadence:      payload.Cadence,
			Status:       payload.Status,
			ActorID:      middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// Get returns a single decision.
func Get(svc internaldecisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "decision service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "decisionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dto, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// Update applies a partial patch. Concurrency conflicts and transient store
// failures are retried with a fresh read under the configured policy.
func Update(svc internaldecisions.Service, policy retry.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "decision service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "decisionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Amount == nil && payload.Cadence == nil && payload.Status == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one of amount, cadence or status is required"))
			return
		}

		input := internaldecisions.UpdateInput{
			DecisionID: id,
			Amount:     payload.Amount,
			Cadence:    payload.Cadence,
			Status:     payload.Status,
			ActorID:    middleware.ActorIDFromContext(r.Context()),
		}

		var dto *internaldecisions.DecisionDTO
		err = retry.Do(r.Context(), policy, func(ctx context.Context) error {
			var updateErr error
			dto, updateErr = svc.Update(ctx, input)
			return updateErr
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}

// History lists the values each update replaced, newest first.
func History(svc internaldecisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "decision service unavailable"))
			return
		}

		id, err := validators.ParseUUIDParam(r, "decisionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, math.MaxInt32)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pageSize, err := validators.ParseQueryInt(r, "page_size", 0, 1, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListHistory(r.Context(), id, page, pageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
