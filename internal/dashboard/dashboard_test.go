package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/calebmorris/prospector/internal/db"
	"github.com/calebmorris/prospector/internal/schema"
	syncengine "github.com/calebmorris/prospector/internal/sync"
)

func testServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.Open(t.TempDir() + "/mirror.db")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := database.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	srv, err := NewServer(Config{
		Addr:   "127.0.0.1:0",
		Store:  database,
		Logger: log.New(io.Discard, "", 0),
	})
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })
	return srv, database
}

func dialWS(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.GetAddr()+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

func TestWebSocket_WelcomeStatusTable(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeSyncStatus {
		t.Errorf("welcome message type = %q, want sync_status", msg.Type)
	}
}

func TestBroadcast_SyncComplete(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)
	readMessage(t, conn) // welcome

	handler := NewHandler(srv, log.New(io.Discard, "", 0))
	handler.OnSyncResult(syncengine.Result{
		EntityType: schema.EntityAccounts,
		Fetched:    5,
		Upserted:   5,
		Status:     schema.SyncStateSynced,
		Duration:   42 * time.Millisecond,
	})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeSyncComplete {
		t.Fatalf("message type = %q, want sync_complete", msg.Type)
	}
	var data SyncCompleteData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.EntityType != "accounts" || data.Fetched != 5 || data.Status != "synced" {
		t.Errorf("data = %+v", data)
	}
}

func TestPublish_QueueUpdate(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)
	readMessage(t, conn) // welcome

	pub := NewPublisher(srv.GetAddr(), log.New(io.Discard, "", 0))
	pub.PublishQueueUpdate(&schema.ResearchQueueItem{
		ID:                 "q-1",
		AccountName:        "Acme",
		Status:             schema.QueueStatusActive,
		ProgressPercentage: 40,
		CurrentPhase:       "enrichment",
	})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeQueueUpdate {
		t.Fatalf("message type = %q, want queue_update", msg.Type)
	}
	var data QueueUpdateData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.QueueID != "q-1" || data.Progress != 40 || data.Phase != "enrichment" {
		t.Errorf("data = %+v", data)
	}
}

func TestPublish_Conflict(t *testing.T) {
	srv, _ := testServer(t)
	conn := dialWS(t, srv)
	readMessage(t, conn) // welcome

	pub := NewPublisher(srv.GetAddr(), log.New(io.Discard, "", 0))
	pub.PublishConflict("jane@acme.example", schema.DataConflict{
		FieldName:    "title",
		ChosenValue:  "VP of Engineering",
		ChosenSource: "profile",
		Severity:     schema.SeverityMedium,
	})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeConflict {
		t.Fatalf("message type = %q, want conflict", msg.Type)
	}
	var data ConflictData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if data.ContactEmail != "jane@acme.example" || data.FieldName != "title" || data.Severity != "medium" {
		t.Errorf("data = %+v", data)
	}
}

func TestEvents_RejectsUnknownType(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(fmt.Sprintf("http://%s/events", srv.GetAddr()),
		"application/json", strings.NewReader(`{"type":"bogus"}`))
	if err != nil {
		t.Fatalf("POST /events failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("/events status = %d, want 400", resp.StatusCode)
	}
}

func TestPublish_NoDaemonIsSilent(t *testing.T) {
	// Port 1 is never a prospector daemon; publishing must not block or
	// panic when nothing is listening.
	pub := NewPublisher("127.0.0.1:1", log.New(io.Discard, "", 0))
	pub.PublishQueueUpdate(&schema.ResearchQueueItem{ID: "q-1", Status: schema.QueueStatusQueued})
}

func TestHTTP_HealthAndStatus(t *testing.T) {
	srv, database := testServer(t)
	ctx := context.Background()

	pull := time.Now().UTC()
	if err := database.RecordSyncStatusContext(ctx, &schema.SyncStatus{
		EntityType:        schema.EntityAccounts,
		LastRemotePullAt:  &pull,
		RemoteRecordCount: 3,
		LocalRecordCount:  3,
		Status:            schema.SyncStateSynced,
	}); err != nil {
		t.Fatalf("RecordSyncStatus() failed: %v", err)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/health", srv.GetAddr()))
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/health status = %d", resp.StatusCode)
	}

	resp2, err := http.Get(fmt.Sprintf("http://%s/status", srv.GetAddr()))
	if err != nil {
		t.Fatalf("GET /status failed: %v", err)
	}
	defer resp2.Body.Close()

	var statuses []*schema.SyncStatus
	if err := json.NewDecoder(resp2.Body).Decode(&statuses); err != nil {
		t.Fatalf("decode /status: %v", err)
	}
	if len(statuses) != 1 || statuses[0].EntityType != schema.EntityAccounts {
		t.Errorf("statuses = %+v", statuses)
	}
}

func TestClientCount(t *testing.T) {
	srv, _ := testServer(t)

	if srv.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", srv.ClientCount())
	}
	conn := dialWS(t, srv)
	readMessage(t, conn)
	if srv.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", srv.ClientCount())
	}
}
