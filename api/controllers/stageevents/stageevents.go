package stageevents

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/donorjournal-backend/api/middleware"
	"github.com/angelmondragon/donorjournal-backend/api/responses"
	"github.com/angelmondragon/donorjournal-backend/api/validators"
	internalstageevents "github.com/angelmondragon/donorjournal-backend/internal/stageevents"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
	"github.com/angelmondragon/donorjournal-backend/pkg/pagination"
	"github.com/angelmondragon/donorjournal-backend/pkg/retry"
)

type appendStageEventRequest struct {
	MembershipID uuid.UUID            `json:"journal_contact_id" validate:"required"`
	Stage        enums.PipelineStage  `json:"stage" validate:"required"`
	EventType    enums.StageEventType `json:"event_type" validate:"required"`
	Notes        string               `json:"notes"`
	Metadata     map[string]any       `json:"metadata"`
}

// Append records an interaction and reports the advisory transition it made.
func Append(svc internalstageevents.Service, policy retry.Policy, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stage event service unavailable"))
			return
		}

		var payload appendStageEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalstageevents.AppendInput{
			MembershipID: payload.MembershipID,
			Stage:        payload.Stage,
			EventType:    payload.EventType,
			Notes:        payload.Notes,
			Metadata:     payload.Metadata,
			ActorID:      middleware.ActorIDFromContext(r.Context()),
		}

		var result *internalstageevents.AppendResult
		err := retry.Do(r.Context(), policy, func(ctx context.Context) error {
			var appendErr error
			result, appendErr = svc.Append(ctx, input)
			return appendErr
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// List pages through a membership's events, newest first.
func List(svc internalstageevents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stage event service unavailable"))
			return
		}

		membershipID, err := validators.ParseUUIDParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := internalstageevents.ListParams{
			MembershipID: membershipID,
			Limit:        limit,
			Cursor:       strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("stage")); raw != "" {
			stage, err := enums.ParsePipelineStage(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stage").WithDetails(map[string]any{"field": "stage"}))
				return
			}
			params.Stage = &stage
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// Summary returns every stage summary plus the current stage.
func Summary(svc internalstageevents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stage event service unavailable"))
			return
		}

		membershipID, err := validators.ParseUUIDParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summarize(r.Context(), membershipID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// Transition classifies a prospective move to the stage named by ?to=.
func Transition(svc internalstageevents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stage event service unavailable"))
			return
		}

		membershipID, err := validators.ParseUUIDParam(r, "membershipId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		to, err := enums.ParsePipelineStage(strings.TrimSpace(r.URL.Query().Get("to")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid target stage").WithDetails(map[string]any{"field": "to"}))
			return
		}

		transition, err := svc.AdviseTransition(r.Context(), membershipID, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transition)
	}
}
