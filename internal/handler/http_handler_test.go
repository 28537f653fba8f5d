package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
	"github.com/provant-erp/be-prs-dashboard/internal/service"
)

type stubFeed struct {
	gotReq *service.FeedRequest
	resp   *service.FeedResponse
	err    error
}

func (s *stubFeed) GetFeed(_ context.Context, req *service.FeedRequest) (*service.FeedResponse, error) {
	s.gotReq = req
	return s.resp, s.err
}

func postFeed(h *HTTPHandler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/requisitions/feed", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.GetFeed(rec, req)
	return rec
}

func TestGetFeedMethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := NewHTTPHandler(&stubFeed{}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requisitions/feed", nil)
	rec := httptest.NewRecorder()
	h.GetFeed(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGetFeedMalformedBody(t *testing.T) {
	t.Parallel()

	h := NewHTTPHandler(&stubFeed{}, zerolog.Nop())
	rec := postFeed(h, `{"limit": "ten"`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(apperrors.CodeValidation), body["code"])
}

func TestGetFeedOK(t *testing.T) {
	t.Parallel()

	stub := &stubFeed{resp: &service.FeedResponse{
		MyRequest:  []service.ProjectedDocument{},
		MyApproval: []service.ProjectedDocument{},
		All:        []service.ProjectedDocument{},
		Meta:       service.Meta{Page: 1, Limit: 10, AllTotal: 0},
	}}
	h := NewHTTPHandler(stub, zerolog.Nop())

	rec := postFeed(h, `{
		"limit": 10,
		"page": 1,
		"requestType": "all",
		"timeRange": "1_month",
		"userFromToken": {"id": 7, "role": "requestor"}
	}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	require.NotNil(t, stub.gotReq)
	assert.Equal(t, int64(7), stub.gotReq.UserFromToken.ID)
	assert.Equal(t, "1_month", stub.gotReq.TimeRange)

	var resp service.FeedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Meta.Page)
}

func TestGetFeedErrorStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   apperrors.Code
	}{
		{"validation maps to 400", apperrors.InvalidInput("order", "unknown field"),
			http.StatusBadRequest, apperrors.CodeValidation},
		{"timeout maps to 504", apperrors.New(apperrors.CodeTimeout, "statement timeout"),
			http.StatusGatewayTimeout, apperrors.CodeTimeout},
		{"execution failure maps to 503", apperrors.New(apperrors.CodeQueryExecution, "relation missing"),
			http.StatusServiceUnavailable, apperrors.CodeQueryExecution},
		{"internal maps to 500", apperrors.New(apperrors.CodeInternal, "boom"),
			http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHTTPHandler(&stubFeed{err: tt.err}, zerolog.Nop())
			rec := postFeed(h, `{"userFromToken": {"id": 7}}`)

			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.code), body["code"])
		})
	}
}
