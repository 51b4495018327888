package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pinme-ledger/internal/application/reminder"
	"github.com/pinme-ledger/internal/domain"
)

// --- mock ---

type mockReminderSvc struct{ mock.Mock }

func (m *mockReminderSvc) Create(ctx context.Context, userID string, req domain.CreateReminderRequest) (*reminder.Item, error) {
	args := m.Called(ctx, userID, req)
	if it, _ := args.Get(0).(*reminder.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReminderSvc) List(ctx context.Context, userID string, f reminder.ListFilter) (*reminder.ListResult, error) {
	args := m.Called(ctx, userID, f)
	if res, _ := args.Get(0).(*reminder.ListResult); res != nil {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReminderSvc) Update(ctx context.Context, userID, reminderID string, req domain.UpdateReminderRequest) (*reminder.Item, error) {
	args := m.Called(ctx, userID, reminderID, req)
	if it, _ := args.Get(0).(*reminder.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockReminderSvc) Cancel(ctx context.Context, userID, reminderID string) (*reminder.Item, error) {
	args := m.Called(ctx, userID, reminderID)
	if it, _ := args.Get(0).(*reminder.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}

var remindAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func sampleItem() *reminder.Item {
	return &reminder.Item{
		Reminder: domain.Reminder{ReminderID: "r1", UserID: "u1", Text: "pay rent", RemindAt: remindAt, CreatedAt: remindAt.Add(-time.Hour)},
		Status:   domain.ReminderUpcoming,
	}
}

func TestReminderList_MissingClaims(t *testing.T) {
	h := NewReminderHandler(&mockReminderSvc{})
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/ledger/reminders", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestReminderList_Defaults(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockReminderSvc{}
	svc.On("List", mock.Anything, "u1", reminder.ListFilter{IncludeFinished: true}).
		Return(&reminder.ListResult{Total: 3, Pending: 1, Items: []reminder.Item{*sampleItem()}}, nil)
	h := NewReminderHandler(svc)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, sessionReq(t, p, http.MethodGet, "/ledger/reminders", "u1", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Total   int `json:"total"`
		Pending int `json:"pending"`
		Items   []struct {
			ID     string  `json:"id"`
			Status string  `json:"status"`
			SentAt *string `json:"sent_at"`
		} `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, 1, body.Pending)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "r1", body.Items[0].ID)
	assert.Equal(t, "UPCOMING", body.Items[0].Status)
	assert.Nil(t, body.Items[0].SentAt)
	svc.AssertExpectations(t)
}

func TestReminderList_QueryParams(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockReminderSvc{}
	svc.On("List", mock.Anything, "u1", reminder.ListFilter{IncludeFinished: false, Limit: 10}).
		Return(&reminder.ListResult{Items: []reminder.Item{}}, nil)
	h := NewReminderHandler(svc)

	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, sessionReq(t, p, http.MethodGet, "/ledger/reminders?include_finished=false&limit=10", "u1", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)

	rr = httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.List), rr, sessionReq(t, p, http.MethodGet, "/ledger/reminders?limit=-1", "u1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReminderCreate(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockReminderSvc{}
	svc.On("Create", mock.Anything, "u1", domain.CreateReminderRequest{Text: "pay rent", RemindAt: remindAt}).Return(sampleItem(), nil)
	h := NewReminderHandler(svc)

	body, _ := json.Marshal(map[string]string{"text": "pay rent", "remind_at": remindAt.Format(time.RFC3339)})
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, sessionReq(t, p, http.MethodPost, "/ledger/reminders", "u1", body))
	assert.Equal(t, http.StatusCreated, rr.Code)

	var env struct {
		Reminder struct {
			ID string `json:"id"`
		} `json:"reminder"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "r1", env.Reminder.ID)
}

func TestReminderCreate_BadRequest(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockReminderSvc{}
	svc.On("Create", mock.Anything, "u1", mock.Anything).Return(nil, fmt.Errorf("remind_at must be in the future: %w", domain.ErrBadRequest))
	h := NewReminderHandler(svc)

	body, _ := json.Marshal(map[string]string{"text": "x", "remind_at": "2020-01-01T00:00:00Z"})
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Create), rr, sessionReq(t, p, http.MethodPost, "/ledger/reminders", "u1", body))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReminderUpdate_ErrorMapping(t *testing.T) {
	p := newTestJWTProvider(t)
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("already sent: %w", domain.ErrConflict), http.StatusConflict},
		{nil, http.StatusOK},
	}
	for _, tc := range cases {
		svc := &mockReminderSvc{}
		if tc.err != nil {
			svc.On("Update", mock.Anything, "u1", "r1", mock.Anything).Return(nil, tc.err)
		} else {
			svc.On("Update", mock.Anything, "u1", "r1", mock.Anything).Return(sampleItem(), nil)
		}
		h := NewReminderHandler(svc)

		body, _ := json.Marshal(map[string]string{"text": "new text"})
		req := withChiID(sessionReq(t, p, http.MethodPut, "/ledger/reminders/r1", "u1", body), "r1")
		rr := httptest.NewRecorder()
		serveAuthed(p, http.HandlerFunc(h.Update), rr, req)
		assert.Equal(t, tc.code, rr.Code)
	}
}

func TestReminderCancel(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := &mockReminderSvc{}
	item := sampleItem()
	now := remindAt.Add(-time.Minute)
	item.CancelledAt = &now
	item.Status = domain.ReminderCancelled
	svc.On("Cancel", mock.Anything, "u1", "r1").Return(item, nil)
	h := NewReminderHandler(svc)

	req := withChiID(sessionReq(t, p, http.MethodPost, "/ledger/reminders/r1/cancel", "u1", nil), "r1")
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Cancel), rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"CANCELLED"`)
}
