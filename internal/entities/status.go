package entities

// Session lifecycle states reported on the "whatsNumber" real-time
// event. The Portuguese labels are the wire contract the front-end
// already speaks; do not translate them.
const (
	StatusStarting      = "Iniciando"
	StatusAuthenticated = "Autenticando"
	StatusQRCode        = "qrcode"
	StatusActivating    = "Ativando"
	StatusConnected     = "Conectado"
	StatusAuthFailure   = "auth-fail"
	StatusDisconnected  = "Número desconectado"
)

// StatusDisconnectedKey is the normalized status returned by status
// queries for unregistered or erroring tenants.
const StatusDisconnectedKey = "DISCONNECTED"

// StatusUpdate is the payload of the "whatsNumber" event.
type StatusUpdate struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	QR      string `json:"qr,omitempty"`
}
