// Event handlers bridging sync and queue activity to dashboard messages.
package dashboard

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
	syncengine "github.com/calebmorris/prospector/internal/sync"
)

// Handler formats engine and queue events as dashboard broadcasts.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates an event handler connected to a dashboard server.
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{server: server, logger: logger}
}

// OnSyncResult handles one entity type's completed sync pass. Wire this
// as the sync engine's Notify hook.
func (h *Handler) OnSyncResult(r syncengine.Result) {
	data := SyncCompleteData{
		EntityType: string(r.EntityType),
		Fetched:    r.Fetched,
		Upserted:   r.Upserted,
		Conflicts:  r.Conflicts,
		Status:     string(r.Status),
		Duration:   r.Duration,
	}
	if r.Err != nil {
		data.Error = r.Err.Error()
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal sync data: %v", err)
		return
	}
	h.server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})

	h.BroadcastStatusTable(context.Background())
}

// newConflictData shapes a resolved field conflict for broadcast.
// Conflict events originate in the import command's process and arrive
// through the Publisher.
func newConflictData(contactEmail string, c schema.DataConflict) ConflictData {
	return ConflictData{
		ContactEmail: contactEmail,
		FieldName:    c.FieldName,
		ChosenValue:  c.ChosenValue,
		ChosenSource: c.ChosenSource,
		Severity:     string(c.Severity),
	}
}

// newQueueUpdateData shapes a research queue transition for broadcast.
func newQueueUpdateData(item *schema.ResearchQueueItem) QueueUpdateData {
	return QueueUpdateData{
		QueueID:     item.ID,
		AccountName: item.AccountName,
		Status:      string(item.Status),
		Progress:    item.ProgressPercentage,
		Phase:       item.CurrentPhase,
	}
}

// BroadcastStatusTable pushes the current sync status table to all
// clients.
func (h *Handler) BroadcastStatusTable(ctx context.Context) {
	data, err := h.server.statusJSON(ctx)
	if err != nil {
		h.logger.Printf("Failed to load status table: %v", err)
		return
	}
	h.server.Broadcast(Message{
		Type:      MessageTypeSyncStatus,
		Timestamp: time.Now(),
		Data:      data,
	})
}
