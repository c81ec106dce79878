package ws

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	waLog "go.mau.fi/whatsmeow/util/log"

	"wppserver/internal/entities"
	"wppserver/internal/infrastructure"
	"wppserver/internal/usecases"
)

// Gateway accepts real-time subscriber connections, scopes each to a
// tenant from the handshake, replays the cached QR challenge on join
// and lazily activates the tenant's session.
type Gateway struct {
	hub      *Hub
	manager  *usecases.SessionManager
	qrCache  *infrastructure.QRCache
	upgrader websocket.Upgrader
	log      waLog.Logger
}

func NewGateway(hub *Hub, manager *usecases.SessionManager, qrCache *infrastructure.QRCache, log waLog.Logger) *Gateway {
	return &Gateway{
		hub:     hub,
		manager: manager,
		qrCache: qrCache,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Front-end is served from another origin
			},
		},
		log: log,
	}
}

// Handle upgrades the request and runs the subscriber lifecycle.
func (g *Gateway) Handle(c *gin.Context) {
	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.log.Errorf("Failed to upgrade WebSocket: %v", err)
		return
	}

	tenantID := c.Query("clientId")
	client := NewClient(g.hub, conn, tenantID, g.log)
	g.hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	if tenantID == "" {
		return
	}

	g.replayQR(client, tenantID)

	// Joining a tenant room activates its session if none is live.
	// Idempotent, runs in the background.
	g.manager.EnsureSession(tenantID)
}

// replayQR re-delivers the cached challenge to this subscriber only,
// so a subscriber joining between challenge issuance and scan does not
// miss it. Skipped when the session already resolved active.
func (g *Gateway) replayQR(client *Client, tenantID string) {
	code := g.qrCache.Latest(tenantID)
	if code == "" {
		return
	}

	status := g.manager.Status(context.Background(), tenantID)
	if status.IsActive {
		return
	}

	client.Deliver(&Frame{
		Event: usecases.EventStatus,
		Data: entities.StatusUpdate{
			Status:  entities.StatusQRCode,
			Message: "QR code disponível. Escaneie para conectar.",
			QR:      code,
		},
	})
}
