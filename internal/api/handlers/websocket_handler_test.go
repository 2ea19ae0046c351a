package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tjaddison/govbizai-matching/internal/batch"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
)

// scriptedConn feeds ReadJSON from a channel; closing the channel behaves
// like the peer going away.
type scriptedConn struct {
	reads chan batchRequest

	mu     sync.Mutex
	writes []interface{}
}

func newScriptedConn() *scriptedConn {
	return &scriptedConn{reads: make(chan batchRequest, 1)}
}

func (c *scriptedConn) ReadJSON(v interface{}) error {
	msg, ok := <-c.reads
	if !ok {
		return errors.New("websocket: close 1006 (abnormal closure)")
	}
	*(v.(*batchRequest)) = msg
	return nil
}

func (c *scriptedConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	c.writes = append(c.writes, v)
	c.mu.Unlock()
	return nil
}

func (c *scriptedConn) Close() error { return nil }

type stubBatchStore struct {
	opp      *models.Opportunity
	profiles []models.CompanyProfile
}

func (s *stubBatchStore) GetOpportunity(noticeID string) (*models.Opportunity, error) {
	if s.opp == nil {
		return nil, errors.New("not found")
	}
	return s.opp, nil
}

func (s *stubBatchStore) ListProfilesByTenant(tenantID string, limit int) ([]models.CompanyProfile, error) {
	return s.profiles, nil
}

// blockingMatcher parks every pair until its context dies, recording that
// the cancellation reached it.
type blockingMatcher struct {
	started   chan struct{}
	cancelled chan struct{}
}

func (m *blockingMatcher) ComputeMatch(ctx context.Context, opp *models.Opportunity, profile *models.CompanyProfile) (*models.MatchResult, error) {
	select {
	case m.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	select {
	case m.cancelled <- struct{}{}:
	default:
	}
	return nil, ctx.Err()
}

func TestBatchStreamCancelsOnDisconnect(t *testing.T) {
	matcher := &blockingMatcher{
		started:   make(chan struct{}, 1),
		cancelled: make(chan struct{}, 1),
	}
	store := &stubBatchStore{
		opp: &models.Opportunity{NoticeID: "OPP-1", Title: "Network modernization"},
		profiles: []models.CompanyProfile{
			{CompanyID: "CMP-1", TenantID: "acme"},
			{CompanyID: "CMP-2", TenantID: "acme"},
		},
	}
	h := NewWebSocketHandler(batch.NewCoordinator(matcher, 2), store)

	conn := newScriptedConn()
	conn.reads <- batchRequest{Type: "batch_match", OpportunityID: "OPP-1", TenantID: "acme"}

	done := make(chan struct{})
	go func() {
		h.serve(conn)
		close(done)
	}()

	select {
	case <-matcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("batch run never started")
	}

	// Client goes away while the run is in flight.
	close(conn.reads)

	select {
	case <-matcher.cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("in-flight match was not cancelled after disconnect")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not shut down after disconnect")
	}
}

func TestBatchStreamRejectsUnknownMessageType(t *testing.T) {
	h := NewWebSocketHandler(batch.NewCoordinator(&blockingMatcher{
		started:   make(chan struct{}, 1),
		cancelled: make(chan struct{}, 1),
	}, 1), &stubBatchStore{})

	conn := newScriptedConn()
	conn.reads <- batchRequest{Type: "subscribe"}
	close(conn.reads)

	h.serve(conn)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if len(conn.writes) != 1 {
		t.Fatalf("writes = %d, want 1 error frame", len(conn.writes))
	}
	frame, ok := conn.writes[0].(map[string]interface{})
	if !ok || frame["type"] != "error" {
		t.Errorf("frame = %v, want error frame", conn.writes[0])
	}
}
