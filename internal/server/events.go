package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/charvilabs/charvi/app/models"
	"github.com/charvilabs/charvi/app/notifications"
	"github.com/charvilabs/charvi/app/services"
	"github.com/charvilabs/charvi/config"
	"github.com/charvilabs/charvi/pkg/event"
	"github.com/charvilabs/charvi/pkg/middleware"
	"github.com/charvilabs/charvi/pkg/notification"
	"github.com/charvilabs/charvi/pkg/response"
	"github.com/charvilabs/charvi/pkg/sse"
	"github.com/charvilabs/charvi/pkg/ws"
)

// statusBroker fans order status changes out to SSE subscribers.
type statusBroker struct {
	mu   sync.Mutex
	subs map[chan services.StatusChange]struct{}
}

func newStatusBroker() *statusBroker {
	return &statusBroker{subs: map[chan services.StatusChange]struct{}{}}
}

func (b *statusBroker) subscribe() chan services.StatusChange {
	ch := make(chan services.StatusChange, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *statusBroker) unsubscribe(ch chan services.StatusChange) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

func (b *statusBroker) publish(sc services.StatusChange) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- sc:
		default:
			// slow subscriber, drop
		}
	}
}

// listenOrderEvents bridges the event bus onto the SSE broker, the WebSocket
// hub and the shop-owner alert channels.
func listenOrderEvents(broker *statusBroker, hub *ws.Hub) {
	event.Listen(services.OrderStatusChanged, func(payload interface{}) {
		sc, ok := payload.(services.StatusChange)
		if !ok {
			return
		}
		broker.publish(sc)

		if sc.Status == models.StatusPending {
			if to := config.AdminEmail(); to != "" {
				notification.SendAsync(to, &notifications.OrderPlaced{Change: sc})
			}
		}

		if data, err := json.Marshal(map[string]interface{}{
			"type":  "order.status",
			"event": sc,
		}); err == nil {
			select {
			case hub.Broadcast <- data:
			default:
			}
		}
	})
}

// streamOrderEvents is the SSE endpoint. Users see their own orders; admins
// see everything.
func streamOrderEvents(broker *statusBroker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := middleware.UserIDFromCtx(r)
		if !ok {
			response.Unauthorized(w)
			return
		}
		role, _ := middleware.RoleFromCtx(r)
		admin := role == "admin"

		stream := sse.New(w, r)
		if stream == nil {
			return
		}
		stream.Comment("connected")

		ch := broker.subscribe()
		defer broker.unsubscribe(ch)

		for {
			select {
			case sc := <-ch:
				if !admin && sc.UserID.Hex() != userID {
					continue
				}
				if err := stream.Send("order.status", sc); err != nil || stream.IsClosed() {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	}
}
