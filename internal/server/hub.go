package server

import (
	"context"
	"time"

	"grabarr/internal/domain/logger"
	"grabarr/internal/models"
)

// Event types pushed to websocket clients.
const (
	EventItemProgress  = "item_progress"
	EventItemState     = "item_state"
	EventBatchProgress = "batch_progress"
	EventBatchComplete = "batch_complete"
	EventError         = "error"
	EventStatus        = "status"
	EventSearch        = "search"
	EventLinks         = "links"
)

// Event is one message on the /events stream.
type Event struct {
	Type     string                  `json:"type"`
	Handle   string                  `json:"handle,omitempty"`
	State    models.ItemState        `json:"state,omitempty"`
	Fraction float64                 `json:"fraction,omitempty"`
	Message  string                  `json:"message,omitempty"`
	Result   *models.BatchResult     `json:"result,omitempty"`
	Search   *models.SearchResultSet `json:"search,omitempty"`
	Links    []models.LinkItem       `json:"links,omitempty"`
	Time     time.Time               `json:"time"`
}

const (
	broadcastBuffer = 256
	clientBuffer    = 256
)

// hub fans events out to every connected client. Its maps are owned by run.
type hub struct {
	clients    map[*client]struct{}
	broadcast  chan Event
	register   chan *client
	unregister chan *client
	done       chan struct{}
}

func newHub() *hub {
	return &hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan Event, broadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
	}
}

// run serves the hub until ctx is done, then disconnects every client.
func (h *hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			logger.Pl.D(2, "Event client %s connected", c.remote)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				logger.Pl.D(2, "Event client %s disconnected", c.remote)
			}

		case ev := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- ev:
				default:
					logger.Pl.W("Event client %s is too slow, disconnecting", c.remote)
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// registerClient adds c, reporting false once the hub has stopped.
func (h *hub) registerClient(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *hub) unregisterClient(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// publish queues ev without blocking the caller.
func (h *hub) publish(ev Event) {
	ev.Time = time.Now()
	select {
	case h.broadcast <- ev:
	default:
		logger.Pl.W("Event broadcast buffer full, dropping %s event", ev.Type)
	}
}

// OnItemProgress implements models.Observer.
func (h *hub) OnItemProgress(handle string, fraction float64) {
	h.publish(Event{Type: EventItemProgress, Handle: handle, Fraction: fraction})
}

// OnItemState implements models.Observer.
func (h *hub) OnItemState(handle string, state models.ItemState, err error) {
	ev := Event{Type: EventItemState, Handle: handle, State: state}
	if err != nil {
		ev.Message = err.Error()
	}
	h.publish(ev)
}

// OnBatchComplete implements models.Observer.
func (h *hub) OnBatchComplete(result models.BatchResult) {
	h.publish(Event{Type: EventBatchComplete, Result: &result})
}

// OnBatchProgress implements models.BatchProgressObserver.
func (h *hub) OnBatchProgress(result models.BatchResult) {
	h.publish(Event{Type: EventBatchProgress, Fraction: result.Progress, Result: &result})
}

// OnError implements models.Observer.
func (h *hub) OnError(message string) {
	h.publish(Event{Type: EventError, Message: message})
}

// OnStatus implements app.StatusListener.
func (h *hub) OnStatus(text string) {
	h.publish(Event{Type: EventStatus, Message: text})
}

// OnSearchResults implements app.SearchListener.
func (h *hub) OnSearchResults(rs models.SearchResultSet) {
	ev := Event{Type: EventSearch, Search: &rs}
	if rs.Err != nil {
		ev.Message = rs.Err.Error()
	}
	h.publish(ev)
}

// OnLinksChanged implements app.LinksListener.
func (h *hub) OnLinksChanged(items []models.LinkItem) {
	h.publish(Event{Type: EventLinks, Links: items})
}
