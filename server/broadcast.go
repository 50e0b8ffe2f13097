package server

import "encoding/json"

// publish queues a presence event for fan-out. Drops the event rather
// than blocking a request handler when the hub is saturated.
func (s *Server) publish(event PresenceEventMessage) {
	select {
	case s.events <- event:
	default:
		s.logger.Warnw("Presence event dropped, feed saturated",
			"event", event.Event)
	}
}

// broadcastEvent sends one event to every connected client. Clients with
// full send buffers are disconnected rather than blocking the hub.
func (s *Server) broadcastEvent(event PresenceEventMessage) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorw("Failed to marshal presence event",
			"error", err)
		return
	}

	// Runs on the hub goroutine, so slow clients are removed inline
	// rather than through the unregister channel.
	s.mu.Lock()
	for client := range s.clients {
		select {
		case client.send <- data:
		default:
			s.logger.Warnw("Dropping slow WebSocket client",
				"client_id", client.id)
			delete(s.clients, client)
			client.close()
		}
	}
	s.mu.Unlock()
}
