// Publisher side of the dashboard: commands that run outside the
// daemon process (import, queue) hand their events to the daemon's
// /events endpoint for rebroadcast.
package dashboard

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/calebmorris/prospector/internal/schema"
)

// Publisher delivers dashboard events to a running daemon. Delivery is
// best effort: a daemon that isn't running means nothing is watching,
// so failed posts are dropped silently.
type Publisher struct {
	eventsURL string
	httpc     *http.Client
	logger    *log.Logger
}

// NewPublisher creates a publisher targeting the dashboard at addr
// (the configured dashboard.addr, e.g. ":8087" or "127.0.0.1:8087").
func NewPublisher(addr string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return &Publisher{
		eventsURL: "http://" + host + "/events",
		httpc:     &http.Client{Timeout: 2 * time.Second},
		logger:    logger,
	}
}

// PublishConflict reports a field conflict settled during an import.
// Wire this as the importer's conflict hook.
func (p *Publisher) PublishConflict(contactEmail string, c schema.DataConflict) {
	p.publish(MessageTypeConflict, newConflictData(contactEmail, c))
}

// PublishQueueUpdate reports a research queue transition. Wire this as
// the queue's update hook.
func (p *Publisher) PublishQueueUpdate(item *schema.ResearchQueueItem) {
	if item == nil {
		return
	}
	p.publish(MessageTypeQueueUpdate, newQueueUpdateData(item))
}

func (p *Publisher) publish(t MessageType, data any) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		p.logger.Printf("Failed to marshal %s event: %v", t, err)
		return
	}
	body, err := json.Marshal(Message{Type: t, Timestamp: time.Now(), Data: dataJSON})
	if err != nil {
		p.logger.Printf("Failed to marshal %s event: %v", t, err)
		return
	}

	resp, err := p.httpc.Post(p.eventsURL, "application/json", bytes.NewReader(body))
	if err != nil {
		// No daemon listening; nothing is watching for the event.
		return
	}
	resp.Body.Close()
}
