package simhttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/ubi-africa/ridesim/internal/simcore"
	"github.com/ubi-africa/ridesim/internal/simhttp"
	"github.com/ubi-africa/ridesim/internal/simrun"
)

type memStore struct {
	mu   sync.Mutex
	runs map[uuid.UUID]simrun.Run
}

func newMemStore() *memStore {
	return &memStore{runs: make(map[uuid.UUID]simrun.Run)}
}

func (m *memStore) Create(ctx context.Context, run simrun.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (simrun.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return simrun.Run{}, simcore.ErrRunNotFound
	}
	return run, nil
}

func smallNetwork() *simcore.RoadNetwork {
	coords := map[int]simcore.Coord{0: {X: 0, Y: 0}, 1: {X: 1, Y: 0}, 2: {X: 2, Y: 0}}
	edges := []simcore.Edge{
		{From: 0, To: 1, Length: 1, Time: 60},
		{From: 1, To: 2, Length: 1, Time: 60},
	}
	return simcore.NewRoadNetwork(coords, edges)
}

func TestCreateRunAndGetRun(t *testing.T) {
	network := smallNetwork()
	orders := []simcore.OrderRecord{{ID: 1, PickupNode: 0, DropoffNode: 2, RequestTime: 0}}
	store := newMemStore()
	h := simhttp.NewHandler(network, orders, store)

	body, _ := json.Marshal(simhttp.CreateRunRequest{
		StartTime:          0,
		TimeWindow:         60,
		UntilStep:          5,
		TaxiCount:          2,
		MatchStrategy:      "nearest",
		RepositionStrategy: "random",
		MaxPickupTime:      300,
		MaxRepositionTime:  60,
		Seed:               7,
	})

	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created simhttp.CreateRunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected non-nil run id")
	}

	getReq := httptest.NewRequest(http.MethodGet, "/runs/"+created.ID.String(), nil)
	getRec := httptest.NewRecorder()
	h.Routes().ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", getRec.Code, getRec.Body.String())
	}
}

func TestGetRunUnknownIDReturnsNotFound(t *testing.T) {
	h := simhttp.NewHandler(smallNetwork(), nil, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/runs/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetRunInvalidIDReturnsBadRequest(t *testing.T) {
	h := simhttp.NewHandler(smallNetwork(), nil, newMemStore())

	req := httptest.NewRequest(http.MethodGet, "/runs/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateRunInvalidConfigReturnsBadRequest(t *testing.T) {
	h := simhttp.NewHandler(smallNetwork(), nil, newMemStore())

	body, _ := json.Marshal(simhttp.CreateRunRequest{TaxiCount: 0})
	req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
