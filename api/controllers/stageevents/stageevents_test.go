package stageevents

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/donorjournal-backend/internal/pipeline"
	internalstageevents "github.com/angelmondragon/donorjournal-backend/internal/stageevents"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/angelmondragon/donorjournal-backend/pkg/retry"
)

type stubStageEventService struct {
	appendFn    func(ctx context.Context, input internalstageevents.AppendInput) (*internalstageevents.AppendResult, error)
	summarize   func(ctx context.Context, id uuid.UUID) (*internalstageevents.MembershipSummary, error)
	advise      func(ctx context.Context, id uuid.UUID, to enums.PipelineStage) (*pipeline.Transition, error)
	list        func(ctx context.Context, params internalstageevents.ListParams) (*internalstageevents.EventList, error)
	breakdownFn func(ctx context.Context, journalID uuid.UUID) (*internalstageevents.Breakdown, error)
}

func (s *stubStageEventService) Append(ctx context.Context, input internalstageevents.AppendInput) (*internalstageevents.AppendResult, error) {
	return s.appendFn(ctx, input)
}

func (s *stubStageEventService) Summarize(ctx context.Context, id uuid.UUID) (*internalstageevents.MembershipSummary, error) {
	return s.summarize(ctx, id)
}

func (s *stubStageEventService) CurrentStage(ctx context.Context, id uuid.UUID) (*enums.PipelineStage, error) {
	panic("not implemented")
}

func (s *stubStageEventService) AdviseTransition(ctx context.Context, id uuid.UUID, to enums.PipelineStage) (*pipeline.Transition, error) {
	return s.advise(ctx, id, to)
}

func (s *stubStageEventService) List(ctx context.Context, params internalstageevents.ListParams) (*internalstageevents.EventList, error) {
	return s.list(ctx, params)
}

func (s *stubStageEventService) PipelineBreakdown(ctx context.Context, journalID uuid.UUID) (*internalstageevents.Breakdown, error) {
	return s.breakdownFn(ctx, journalID)
}

func (s *stubStageEventService) StageActivity(ctx context.Context, journalID uuid.UUID) (*internalstageevents.StageActivity, error) {
	panic("not implemented")
}

func withMembershipID(req *http.Request, id string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("membershipId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, ctx))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func TestAppendReturnsAdvisoryTransition(t *testing.T) {
	membershipID := uuid.New()
	contact := enums.StageContact
	svc := &stubStageEventService{
		appendFn: func(ctx context.Context, input internalstageevents.AppendInput) (*internalstageevents.AppendResult, error) {
			assert.Equal(t, membershipID, input.MembershipID)
			assert.Equal(t, enums.StageClose, input.Stage)
			assert.Equal(t, enums.StageEventAskMade, input.EventType)
			assert.Equal(t, "asked for 100/mo", input.Notes)
			assert.Equal(t, "phone", input.Metadata["channel"])
			return &internalstageevents.AppendResult{
				Event: internalstageevents.StageEventDTO{
					ID:           uuid.New(),
					MembershipID: membershipID,
					Stage:        input.Stage,
					EventType:    input.EventType,
					Notes:        input.Notes,
					CreatedAt:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				},
				Transition: pipeline.Transition{
					From:          &contact,
					To:            enums.StageClose,
					Kind:          enums.TransitionSkipping,
					SkippedStages: []enums.PipelineStage{enums.StageMeet},
				},
			}, nil
		},
	}

	body := `{"journal_contact_id":"` + membershipID.String() + `","stage":"close","event_type":"ask_made","notes":"asked for 100/mo","metadata":{"channel":"phone"}}`
	rec := httptest.NewRecorder()
	Append(svc, retry.Policy{Attempts: 1}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stage-events", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var result internalstageevents.AppendResult
	decodeData(t, rec, &result)
	assert.Equal(t, enums.StageEventAskMade, result.Event.EventType)
	assert.Equal(t, enums.StageClose, result.Event.Stage)
	assert.Equal(t, enums.TransitionSkipping, result.Transition.Kind)
	assert.Equal(t, []enums.PipelineStage{enums.StageMeet}, result.Transition.SkippedStages)
}

func TestAppendRejectsUnknownStage(t *testing.T) {
	svc := &stubStageEventService{}
	body := `{"journal_contact_id":"` + uuid.NewString() + `","stage":"celebrate","event_type":"other"}`
	rec := httptest.NewRecorder()
	Append(svc, retry.Policy{Attempts: 1}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stage-events", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAppendRetriesDependencyErrors(t *testing.T) {
	calls := 0
	svc := &stubStageEventService{
		appendFn: func(context.Context, internalstageevents.AppendInput) (*internalstageevents.AppendResult, error) {
			calls++
			if calls == 1 {
				return nil, pkgerrors.New(pkgerrors.CodeDependency, "database is locked")
			}
			return &internalstageevents.AppendResult{}, nil
		},
	}
	body := `{"journal_contact_id":"` + uuid.NewString() + `","stage":"contact","event_type":"call_logged"}`
	rec := httptest.NewRecorder()
	Append(svc, retry.Policy{Attempts: 2, BaseDelay: time.Millisecond}, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestListParsesFilters(t *testing.T) {
	membershipID := uuid.New()
	svc := &stubStageEventService{
		list: func(ctx context.Context, params internalstageevents.ListParams) (*internalstageevents.EventList, error) {
			assert.Equal(t, membershipID, params.MembershipID)
			assert.Equal(t, 5, params.Limit)
			assert.Equal(t, "abc", params.Cursor)
			require.NotNil(t, params.Stage)
			assert.Equal(t, enums.StageMeet, *params.Stage)
			return &internalstageevents.EventList{Events: []internalstageevents.StageEventDTO{}, NextCursor: "next"}, nil
		},
	}
	req := withMembershipID(httptest.NewRequest(http.MethodGet, "/?limit=5&cursor=abc&stage=meet", nil), membershipID.String())
	rec := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var list internalstageevents.EventList
	decodeData(t, rec, &list)
	assert.Equal(t, "next", list.NextCursor)

	rec = httptest.NewRecorder()
	List(svc, nil).ServeHTTP(rec, withMembershipID(httptest.NewRequest(http.MethodGet, "/?stage=celebrate", nil), membershipID.String()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryNotFound(t *testing.T) {
	svc := &stubStageEventService{
		summarize: func(context.Context, uuid.UUID) (*internalstageevents.MembershipSummary, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		},
	}
	rec := httptest.NewRecorder()
	Summary(svc, nil).ServeHTTP(rec, withMembershipID(httptest.NewRequest(http.MethodGet, "/", nil), uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitionRequiresTarget(t *testing.T) {
	membershipID := uuid.New()
	svc := &stubStageEventService{
		advise: func(ctx context.Context, id uuid.UUID, to enums.PipelineStage) (*pipeline.Transition, error) {
			return &pipeline.Transition{To: to, Kind: enums.TransitionSequential, SkippedStages: []enums.PipelineStage{}}, nil
		},
	}

	rec := httptest.NewRecorder()
	Transition(svc, nil).ServeHTTP(rec, withMembershipID(httptest.NewRequest(http.MethodGet, "/?to=meet", nil), membershipID.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	var transition pipeline.Transition
	decodeData(t, rec, &transition)
	assert.Equal(t, enums.StageMeet, transition.To)

	rec = httptest.NewRecorder()
	Transition(svc, nil).ServeHTTP(rec, withMembershipID(httptest.NewRequest(http.MethodGet, "/", nil), membershipID.String()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
