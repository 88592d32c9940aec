package decisions

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

	"github.com/angelmondragon/donorjournal-backend/api/middleware"
	internaldecisions "github.com/angelmondragon/donorjournal-backend/internal/decisions"
	"github.com/angelmondragon/donorjournal-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/donorjournal-backend/pkg/errors"
	"github.com/angelmondragon/donorjournal-backend/pkg/retry"
)

type stubDecisionService struct {
	create  func(ctx context.Context, input internaldecisions.CreateInput) (*internaldecisions.DecisionDTO, error)
	update  func(ctx context.Context, input internaldecisions.UpdateInput) (*internaldecisions.DecisionDTO, error)
	get     func(ctx context.Context, id uuid.UUID) (*internaldecisions.DecisionDTO, error)
	history func(ctx context.Context, id uuid.UUID, page, pageSize int) (*internaldecisions.HistoryPage, error)
}

func (s *stubDecisionService) Create(ctx context.Context, input internaldecisions.CreateInput) (*internaldecisions.DecisionDTO, error) {
	return s.create(ctx, input)
}

func (s *stubDecisionService) Update(ctx context.Context, input internaldecisions.UpdateInput) (*internaldecisions.DecisionDTO, error) {
	return s.update(ctx, input)
}

func (s *stubDecisionService) Get(ctx context.Context, id uuid.UUID) (*internaldecisions.DecisionDTO, error) {
	return s.get(ctx, id)
}

func (s *stubDecisionService) ListByJournal(ctx context.Context, journalID uuid.UUID) ([]internaldecisions.DecisionDTO, error) {
	panic("not implemented")
}

func (s *stubDecisionService) DecisionTrends(ctx context.Context, journalID uuid.UUID) (*internaldecisions.DecisionTrends, error) {
	panic("not implemented")
}

func (s *stubDecisionService) ListHistory(ctx context.Context, id uuid.UUID, page, pageSize int) (*internaldecisions.HistoryPage, error) {
	return s.history(ctx, id, page, pageSize)
}

var fastRetry = retry.Policy{Attempts: 3, BaseDelay: time.Millisecond}

func withDecisionID(req *http.Request, id string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add("decisionId", id)
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

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func TestCreateDecision(t *testing.T) {
	membershipID := uuid.New()
	actorID := uuid.New()
	var captured internaldecisions.CreateInput
	svc := &stubDecisionService{
		create: func(ctx context.Context, input internaldecisions.CreateInput) (*internaldecisions.DecisionDTO, error) {
			captured = input
			return &internaldecisions.DecisionDTO{
				ID:           uuid.New(),
				MembershipID: input.MembershipID,
				Amount:       "100.00",
				Cadence:      input.Cadence,
				Status:       enums.DecisionStatusPending,
				Version:      1,
			}, nil
		},
	}

	body := `{"journal_contact_id":"` + membershipID.String() + `","amount":"100","cadence":"monthly"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/decisions", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), actorID.String()))
	rec := httptest.NewRecorder()

	Create(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, membershipID, captured.MembershipID)
	assert.Equal(t, "100", captured.Amount.String())
	assert.Equal(t, enums.CadenceMonthly, captured.Cadence)
	assert.Empty(t, captured.Status)
	require.NotNil(t, captured.ActorID)
	assert.Equal(t, actorID, *captured.ActorID)

	var dto internaldecisions.DecisionDTO
	decodeData(t, rec, &dto)
	assert.Equal(t, "100.00", dto.Amount)
	assert.Equal(t, enums.CadenceMonthly, dto.Cadence)
}

func TestCreateDecisionRejectsBadPayload(t *testing.T) {
	svc := &stubDecisionService{
		create: func(context.Context, internaldecisions.CreateInput) (*internaldecisions.DecisionDTO, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	cases := map[string]string{
		"unknown cadence": `{"journal_contact_id":"` + uuid.NewString() + `","amount":"10","cadence":"weekly"}`,
		"missing amount":  `{"journal_contact_id":"` + uuid.NewString() + `","cadence":"monthly"}`,
		"missing contact": `{"amount":"10","cadence":"monthly"}`,
		"bad status":      `{"journal_contact_id":"` + uuid.NewString() + `","amount":"10","cadence":"monthly","status":"maybe"}`,
		"sub-cent amount": `{"journal_contact_id":"` + uuid.NewString() + `","amount":"10.005","cadence":"monthly"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Create(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decisions", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, rec))
		})
	}
}

func TestCreateDecisionDuplicate(t *testing.T) {
	svc := &stubDecisionService{
		create: func(context.Context, internaldecisions.CreateInput) (*internaldecisions.DecisionDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDuplicateDecision, "decision already exists")
		},
	}
	body := `{"journal_contact_id":"` + uuid.NewString() + `","amount":"10","cadence":"annual"}`
	rec := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/decisions", strings.NewReader(body)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeDuplicateDecision), errorCode(t, rec))
}

func TestUpdateDecisionRetriesConflicts(t *testing.T) {
	id := uuid.New()
	calls := 0
	svc := &stubDecisionService{
		update: func(ctx context.Context, input internaldecisions.UpdateInput) (*internaldecisions.DecisionDTO, error) {
			calls++
			assert.Equal(t, id, input.DecisionID)
			require.NotNil(t, input.Status)
			assert.Equal(t, enums.DecisionStatusActive, *input.Status)
			assert.Nil(t, input.Amount)
			if calls == 1 {
				return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "stale")
			}
			return &internaldecisions.DecisionDTO{ID: id, Amount: "25.00", Cadence: enums.CadenceMonthly, Status: enums.DecisionStatusActive, Version: 2}, nil
		},
	}

	req := withDecisionID(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"active"}`)), id.String())
	rec := httptest.NewRecorder()
	Update(svc, fastRetry, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
	var dto internaldecisions.DecisionDTO
	decodeData(t, rec, &dto)
	assert.Equal(t, 2, dto.Version)
}

func TestUpdateDecisionGivesUpAfterPolicy(t *testing.T) {
	calls := 0
	svc := &stubDecisionService{
		update: func(context.Context, internaldecisions.UpdateInput) (*internaldecisions.DecisionDTO, error) {
			calls++
			return nil, pkgerrors.New(pkgerrors.CodeConcurrencyConflict, "stale")
		},
	}
	req := withDecisionID(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"amount":"12.50"}`)), uuid.NewString())
	rec := httptest.NewRecorder()
	Update(svc, fastRetry, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeConcurrencyConflict), errorCode(t, rec))
	assert.Equal(t, 3, calls)
}

func TestUpdateDecisionValidation(t *testing.T) {
	svc := &stubDecisionService{}

	rec := httptest.NewRecorder()
	Update(svc, fastRetry, nil).ServeHTTP(rec, withDecisionID(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{}`)), uuid.NewString()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	Update(svc, fastRetry, nil).ServeHTTP(rec, withDecisionID(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"active"}`)), "not-a-uuid"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDecisionNotFound(t *testing.T) {
	svc := &stubDecisionService{
		get: func(context.Context, uuid.UUID) (*internaldecisions.DecisionDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "decision not found")
		},
	}
	rec := httptest.NewRecorder()
	Get(svc, nil).ServeHTTP(rec, withDecisionID(httptest.NewRequest(http.MethodGet, "/", nil), uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistoryPassesPaging(t *testing.T) {
	id := uuid.New()
	svc := &stubDecisionService{
		history: func(ctx context.Context, got uuid.UUID, page, pageSize int) (*internaldecisions.HistoryPage, error) {
			assert.Equal(t, id, got)
			assert.Equal(t, 2, page)
			assert.Equal(t, 10, pageSize)
			return &internaldecisions.HistoryPage{Page: page, PageSize: pageSize, Entries: []internaldecisions.HistoryEntryDTO{}}, nil
		},
	}
	req := withDecisionID(httptest.NewRequest(http.MethodGet, "/?page=2&page_size=10", nil), id.String())
	rec := httptest.NewRecorder()
	History(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var page internaldecisions.HistoryPage
	decodeData(t, rec, &page)
	assert.Equal(t, 2, page.Page)

	rec = httptest.NewRecorder()
	History(svc, nil).ServeHTTP(rec, withDecisionID(httptest.NewRequest(http.MethodGet, "/?page=0", nil), id.String()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
