package journals

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/donorjournal-backend/api/responses"
	"github.com/angelmondragon/donorjournal-backend/api/validators"
	"github.com/angelmondragon/donorjournal-backend/internal/decisions"
	"github.com/angelmondragon/donorjournal-backend/internal/progress"
	"github.com/angelmondragon/donorjournal-backend/internal/stageevents"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/angelmondragon/donorjournal-backend/pkg/logger"
)

// Decisions lists every decision recorded in a journal.
func Decisions(svc decisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "decision service unavailable"))
			return
		}

		journalID, err := validators.ParseUUIDParam(r, "journalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListByJournal(r.Context(), journalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// Progress reports pledged totals against the journal goal. A ?goal= query
// overrides the stored goal for what-if views.
func Progress(svc progress.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "progress service unavailable"))
			return
		}

		journalID, err := validators.ParseUUIDParam(r, "journalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var result *progress.Progress
		if raw := strings.TrimSpace(r.URL.Query().Get("goal")); raw != "" {
			goal, parseErr := decimal.NewFromString(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "goal must be numeric").WithDetails(map[string]any{"field": "goal"}))
				return
			}
			result, err = svc.Progress(r.Context(), journalID, goal)
		} else {
			result, err = svc.ProgressForJournal(r.Context(), journalID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result.ToDTO())
	}
}

// Breakdown counts a journal's memberships by current stage.
func Breakdown(svc stageevents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stage event service unavailable"))
			return
		}

		journalID, err := validators.ParseUUIDParam(r, "journalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		breakdown, err := svc.PipelineBreakdown(r.Context(), journalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, breakdown)
	}
}

// StageActivity reports stage event counts per month, every stage included.
func StageActivity(svc stageevents.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stage event service unavailable"))
			return
		}

		journalID, err := validators.ParseUUIDParam(r, "journalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		activity, err := svc.StageActivity(r.Context(), journalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, activity)
	}
}

// DecisionTrends reports how many decisions were recorded each month.
func DecisionTrends(svc decisions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "decision service unavailable"))
			return
		}

		journalID, err := validators.ParseUUIDParam(r, "journalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		trends, err := svc.DecisionTrends(r.Context(), journalID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, trends)
	}
}
