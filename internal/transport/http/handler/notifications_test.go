package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bed-alerts/internal/domain"
)

// --- mock ---

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) List(ctx context.Context) ([]*domain.Notification, error) {
	args := m.Called(ctx)
	ns, _ := args.Get(0).([]*domain.Notification)
	return ns, args.Error(1)
}

func (m *mockNotificationSvc) Get(ctx context.Context, id string) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationSvc) Raise(ctx context.Context, bedID string, event domain.LocationEvent) (*domain.Notification, error) {
	args := m.Called(ctx, bedID, event)
	n, _ := args.Get(0).(*domain.Notification)
	return n, args.Error(1)
}

func (m *mockNotificationSvc) ConfirmForUser(ctx context.Context, id, userID string) (domain.UserConfirmation, error) {
	args := m.Called(ctx, id, userID)
	uc, _ := args.Get(0).(domain.UserConfirmation)
	return uc, args.Error(1)
}

func (m *mockNotificationSvc) ConfirmForEvent(ctx context.Context, id string, event domain.LocationEvent) (domain.AutoConfirmation, error) {
	args := m.Called(ctx, id, event)
	ac, _ := args.Get(0).(domain.AutoConfirmation)
	return ac, args.Error(1)
}

func (m *mockNotificationSvc) HandleLocationEvent(ctx context.Context, event domain.LocationEvent) (int, error) {
	args := m.Called(ctx, event)
	return args.Int(0), args.Error(1)
}

// --- helpers ---

var (
	confirmedAt = time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	testUser    = domain.User{ID: "user-1", EnabledWards: []string{"Ward 1"}, Devices: []domain.UserDevice{}}
	testEvent   = domain.LocationEvent{Source: "wall-button-20", Timestamp: 1746489600000}
)

// withChiID injects a chi URL param "id" into the request context.
func withChiID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func postJSON(t *testing.T, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	return httptest.NewRequest(http.MethodPost, target, &buf)
}

func newNotification(t *testing.T) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(domain.Snapshot{
		ID:           "n1",
		Bed:          domain.Bed{ID: "bed-1", Name: "Bed 1", Ward: "Ward 1", NotificationsEnabled: true},
		Organization: domain.Organization{ID: "org-1", NotificationsEnabled: true},
		Users:        []domain.User{testUser},
		Event:        testEvent,
	}, domain.Collaborators{})
	require.NoError(t, err)
	return n
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

// --- List ---

func TestList_WrapsViews(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("List", mock.Anything).Return([]*domain.Notification{newNotification(t)}, nil)
	rr := httptest.NewRecorder()

	NewNotificationHandler(svc).List(rr, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	body := decode(t, rr)
	list, ok := body["notifications"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	first := list[0].(map[string]interface{})
	assert.Equal(t, "n1", first["id"])
	assert.NotContains(t, first, "userConfirmation")
	assert.NotContains(t, first, "autoConfirmation")
}

func TestList_EmptyIsArray(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("List", mock.Anything).Return(nil, nil)
	rr := httptest.NewRecorder()

	NewNotificationHandler(svc).List(rr, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	assert.JSONEq(t, `{"notifications":[]}`, rr.Body.String())
}

func TestList_StoreFailureIsGeneric500(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("List", mock.Anything).Return(nil, errors.New("dynamo: connection reset"))
	rr := httptest.NewRecorder()

	NewNotificationHandler(svc).List(rr, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rr.Body.String())
}

// --- Get ---

func TestGet_NotFound(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("Get", mock.Anything, "nope").Return(nil, &domain.NotificationNotFoundError{NotificationID: "nope"})
	rr := httptest.NewRecorder()

	NewNotificationHandler(svc).Get(rr, withChiID(httptest.NewRequest(http.MethodGet, "/notifications/nope", nil), "nope"))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "notification with id nope not found", decode(t, rr)["error"])
}

// --- Raise ---

func TestRaise_Created(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("Raise", mock.Anything, "bed-1", testEvent).Return(newNotification(t), nil)
	rr := httptest.NewRecorder()

	NewNotificationHandler(svc).Raise(rr, postJSON(t, "/notifications", map[string]interface{}{
		"bedId": "bed-1",
		"event": map[string]interface{}{"source": testEvent.Source, "timestamp": testEvent.Timestamp},
	}))

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "n1", decode(t, rr)["id"])
	svc.AssertExpectations(t)
}

func TestRaise_BadRequests(t *testing.T) {
	cases := map[string]string{
		"not json":      "not-json",
		"missing bed":   `{"event":{"source":"s","timestamp":1}}`,
		"missing event": `{"bedId":"bed-1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := &mockNotificationSvc{}
			rr := httptest.NewRecorder()
			NewNotificationHandler(svc).Raise(rr, postJSON(t, "/notifications", body))
			assert.Equal(t, http.StatusBadRequest, rr.Code)
			svc.AssertNotCalled(t, "Raise", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// --- ConfirmForUser ---

func TestConfirmForUser_OK(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("ConfirmForUser", mock.Anything, "n1", "user-1").
		Return(domain.UserConfirmation{ConfirmedAt: confirmedAt, ConfirmedBy: testUser}, nil)
	rr := httptest.NewRecorder()

	r := withChiID(postJSON(t, "/notifications/n1/confirm-for-user", `{"userId":"user-1"}`), "n1")
	NewNotificationHandler(svc).ConfirmForUser(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"userConfirmation":{
		"confirmedAt":"2025-05-06T10:00:00.000Z",
		"confirmedBy":{"id":"user-1","enabledWards":["Ward 1"],"devices":[]}
	}}`, rr.Body.String())
}

func TestConfirmForUser_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"missing userId", `{}`, nil, http.StatusBadRequest},
		{"unknown user", `{"userId":"u9"}`, &domain.UserNotFoundError{UserID: "u9"}, http.StatusBadRequest},
		{"unknown notification", `{"userId":"u1"}`, &domain.NotificationNotFoundError{NotificationID: "n1"}, http.StatusNotFound},
		{"already confirmed", `{"userId":"u1"}`, &domain.NotificationAlreadyConfirmedError{NotificationID: "n1"}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockNotificationSvc{}
			if tc.err != nil {
				svc.On("ConfirmForUser", mock.Anything, "n1", mock.Anything).Return(nil, tc.err)
			}
			rr := httptest.NewRecorder()

			r := withChiID(postJSON(t, "/notifications/n1/confirm-for-user", tc.body), "n1")
			NewNotificationHandler(svc).ConfirmForUser(rr, r)

			assert.Equal(t, tc.status, rr.Code)
			assert.NotEmpty(t, decode(t, rr)["error"])
		})
	}
}

// --- ConfirmForEvent ---

func TestConfirmForEvent_OK(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("ConfirmForEvent", mock.Anything, "n1", testEvent).
		Return(domain.AutoConfirmation{ConfirmedAt: confirmedAt, ConfirmedBy: testEvent}, nil)
	rr := httptest.NewRecorder()

	r := withChiID(postJSON(t, "/notifications/n1/confirm-for-event",
		`{"event":{"source":"wall-button-20","timestamp":1746489600000}}`), "n1")
	NewNotificationHandler(svc).ConfirmForEvent(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"autoConfirmation":{
		"confirmedAt":"2025-05-06T10:00:00.000Z",
		"confirmedBy":{"source":"wall-button-20","timestamp":1746489600000}
	}}`, rr.Body.String())
}

func TestConfirmForEvent_ErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"missing event", `{}`, nil, http.StatusBadRequest},
		{"missing timestamp", `{"event":{"source":"s"}}`, nil, http.StatusBadRequest},
		{"missing source", `{"event":{"timestamp":1}}`, nil, http.StatusBadRequest},
		{"source mismatch", `{"event":{"source":"x","timestamp":1}}`, &domain.EventSourceMismatchError{Expected: "s", Actual: "x"}, http.StatusBadRequest},
		{"unknown notification", `{"event":{"source":"s","timestamp":1}}`, &domain.NotificationNotFoundError{NotificationID: "n1"}, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockNotificationSvc{}
			if tc.err != nil {
				svc.On("ConfirmForEvent", mock.Anything, "n1", mock.Anything).Return(nil, tc.err)
			}
			rr := httptest.NewRecorder()

			r := withChiID(postJSON(t, "/notifications/n1/confirm-for-event", tc.body), "n1")
			NewNotificationHandler(svc).ConfirmForEvent(rr, r)

			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

// --- health ---

func TestPing(t *testing.T) {
	h := NewHealthHandler()

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", "ping")
	r := httptest.NewRequest(http.MethodGet, "/health-check/ping", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	rr := httptest.NewRecorder()
	h.Ping(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}
