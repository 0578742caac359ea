package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hanoigo/assistant/internal/core/domain"
	"github.com/hanoigo/assistant/internal/core/ports"
	"github.com/hanoigo/assistant/internal/observability/metrics"
)

type stubAssist struct {
	candidates []domain.CandidateResult
	err        error
	lastReq    ports.AssistRequest
}

func (s *stubAssist) Assist(_ context.Context, req ports.AssistRequest) ([]domain.CandidateResult, error) {
	s.lastReq = req
	return s.candidates, s.err
}

type stubCatalog struct {
	venue *domain.Venue
	err   error
}

func (s *stubCatalog) SearchByKeyword(context.Context, string, domain.RetrievalFilter, int) ([]domain.Venue, error) {
	return nil, nil
}
func (s *stubCatalog) SearchByTags(context.Context, []string, domain.RetrievalFilter, int) ([]domain.Venue, error) {
	return nil, nil
}
func (s *stubCatalog) SearchByAddress(context.Context, string, domain.RetrievalFilter, int) ([]domain.Venue, error) {
	return nil, nil
}
func (s *stubCatalog) SearchNearby(context.Context, domain.Coordinates, float64, domain.RetrievalFilter, int) ([]domain.Venue, error) {
	return nil, nil
}
func (s *stubCatalog) GetByID(context.Context, string) (*domain.Venue, error) {
	return s.venue, s.err
}
func (s *stubCatalog) GetByIDs(context.Context, []string) ([]domain.Venue, error) {
	return nil, nil
}

type stubQueue struct {
	published []string
	err       error
}

func (s *stubQueue) PublishVenueIngested(_ context.Context, venueID string) error {
	if s.err != nil {
		return s.err
	}
	s.published = append(s.published, venueID)
	return nil
}

func (s *stubQueue) SubscribeVenueIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func newTestRouter(assist *stubAssist, catalog *stubCatalog, queue *stubQueue) http.Handler {
	return NewRouter(assist, catalog, queue, nil, metrics.NewHTTPServerMetrics(serviceName), RouterConfig{}).Handler()
}

func TestAssistEndpointReturnsCandidates(t *testing.T) {
	assist := &stubAssist{candidates: []domain.CandidateResult{
		{Venue: domain.Venue{ID: "v1", Name: "Phở Thìn"}, Strategy: "keyword"},
	}}
	handler := newTestRouter(assist, &stubCatalog{}, &stubQueue{})

	body := `{"query":"quán phở ngon","coordinates":{"lat":21.03,"lng":105.85},"limit":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assist", strings.NewReader(body))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}

	var resp assistResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Candidates[0].Name != "Phở Thìn" {
		t.Fatalf("resp = %+v", resp)
	}
	if assist.lastReq.Coordinates == nil || assist.lastReq.Coordinates.Lat != 21.03 {
		t.Fatalf("coordinates not forwarded: %+v", assist.lastReq)
	}
	if assist.lastReq.Limit != 5 {
		t.Fatalf("limit not forwarded: %d", assist.lastReq.Limit)
	}
}

func TestAssistEndpointRejectsBlankQuery(t *testing.T) {
	handler := newTestRouter(&stubAssist{}, &stubCatalog{}, &stubQueue{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assist", strings.NewReader(`{"query":"  "}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestAssistEndpointRejectsInvalidJSON(t *testing.T) {
	handler := newTestRouter(&stubAssist{}, &stubCatalog{}, &stubQueue{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assist", strings.NewReader("{"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestAssistEndpointMapsTemporaryErrorTo503(t *testing.T) {
	assist := &stubAssist{err: domain.WrapError(domain.ErrTemporary, "retrieve", errors.New("backend down"))}
	handler := newTestRouter(assist, &stubCatalog{}, &stubQueue{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assist", strings.NewReader(`{"query":"chè"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestGetVenueNotFoundReturns404(t *testing.T) {
	catalog := &stubCatalog{err: domain.ErrVenueNotFound}
	handler := newTestRouter(&stubAssist{}, catalog, &stubQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/venues/missing", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestReindexPublishesEvent(t *testing.T) {
	catalog := &stubCatalog{venue: &domain.Venue{ID: "v1", Name: "Phở Thìn"}}
	queue := &stubQueue{}
	handler := newTestRouter(&stubAssist{}, catalog, queue)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/venues/v1/reindex", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", res.Code, res.Body.String())
	}
	if len(queue.published) != 1 || queue.published[0] != "v1" {
		t.Fatalf("published = %v", queue.published)
	}
}

func TestReindexUnknownVenueDoesNotPublish(t *testing.T) {
	catalog := &stubCatalog{err: domain.ErrVenueNotFound}
	queue := &stubQueue{}
	handler := newTestRouter(&stubAssist{}, catalog, queue)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/venues/missing/reindex", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d", res.Code)
	}
	if len(queue.published) != 0 {
		t.Fatalf("published = %v", queue.published)
	}
}

func TestHealthzReportsOK(t *testing.T) {
	handler := newTestRouter(&stubAssist{}, &stubCatalog{}, &stubQueue{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatal("missing request id header")
	}
}
