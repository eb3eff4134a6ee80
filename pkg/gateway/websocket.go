package gateway

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/NaveenPalisetti/meetingmcp/pkg/telemetry"
)

// handleEvents streams orchestration events to the client as JSON frames.
// The stream is write-only; CloseRead keeps control frames serviced and
// cancels the context when the client goes away.
func (g *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		g.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	events, cancel := g.orch.Bus().Subscribe()
	defer cancel()

	telemetry.Metrics.ActiveConnections.Inc()
	defer telemetry.Metrics.ActiveConnections.Dec()

	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}
