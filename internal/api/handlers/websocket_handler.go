package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/tjaddison/govbizai-matching/internal/batch"
	"github.com/tjaddison/govbizai-matching/internal/storage/models"
	"github.com/tjaddison/govbizai-matching/pkg/logger"
)

const maxBatchProfiles = 5000

// batchConn is the slice of the websocket connection the batch stream uses.
type batchConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// batchStore loads the records a batch run needs.
type batchStore interface {
	GetOpportunity(noticeID string) (*models.Opportunity, error)
	ListProfilesByTenant(tenantID string, limit int) ([]models.CompanyProfile, error)
}

// batchRunner fans one opportunity out across profiles. Satisfied by
// batch.Coordinator.
type batchRunner interface {
	MatchAll(ctx context.Context, opp *models.Opportunity, profiles []models.CompanyProfile, onProgress func(batch.Progress)) (*batch.Summary, error)
}

type batchRequest struct {
	Type          string `json:"type"`
	OpportunityID string `json:"opportunity_id"`
	TenantID      string `json:"tenant_id"`
}

// WebSocketHandler streams batch match runs: the client names an opportunity
// and a tenant, the server scores the tenant's whole portfolio and pushes
// progress frames as pairs finish, then a final summary frame.
type WebSocketHandler struct {
	coordinator batchRunner
	db          batchStore
}

func NewWebSocketHandler(coordinator batchRunner, db batchStore) *WebSocketHandler {
	return &WebSocketHandler{
		coordinator: coordinator,
		db:          db,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	h.serve(c)
}

// serve reads requests on a dedicated goroutine so a disconnect observed
// mid-run cancels the in-flight fan-out instead of letting it score
// thousands of pairs for a listener that is gone. Runs are serialized, and
// all writes happen from this goroutine.
func (h *WebSocketHandler) serve(c batchConn) {
	logger.Info("WebSocket connection established")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	requests := make(chan batchRequest)
	go func() {
		defer close(requests)
		for {
			var msg batchRequest
			if err := c.ReadJSON(&msg); err != nil {
				logger.Debug("WebSocket read ended", zap.Error(err))
				cancel()
				return
			}
			select {
			case requests <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for msg := range requests {
		if msg.Type != "batch_match" {
			h.sendError(c, "Unknown message type: "+msg.Type)
			continue
		}
		if msg.OpportunityID == "" || msg.TenantID == "" {
			h.sendError(c, "opportunity_id and tenant_id are required")
			continue
		}

		if err := h.runBatch(ctx, c, msg.OpportunityID, msg.TenantID); err != nil {
			logger.Error("Batch stream failed",
				zap.String("opportunity_id", msg.OpportunityID),
				zap.String("tenant_id", msg.TenantID),
				zap.Error(err),
			)
			h.sendError(c, "Batch run failed")
		}
	}
}

func (h *WebSocketHandler) runBatch(ctx context.Context, c batchConn, opportunityID, tenantID string) error {
	opp, err := h.db.GetOpportunity(opportunityID)
	if err != nil {
		h.sendError(c, "Opportunity not found")
		return nil
	}

	profiles, err := h.db.ListProfilesByTenant(tenantID, maxBatchProfiles)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		h.sendError(c, "No profiles for tenant")
		return nil
	}

	summary, err := h.coordinator.MatchAll(ctx, opp, profiles, func(p batch.Progress) {
		c.WriteJSON(map[string]interface{}{
			"type":     "progress",
			"progress": p,
		})
	})
	if err != nil {
		return err
	}

	return c.WriteJSON(map[string]interface{}{
		"type":    "summary",
		"summary": summary,
	})
}

func (h *WebSocketHandler) sendError(c batchConn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}
