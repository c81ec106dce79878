package entities

// SendRequest is the payload for sending a message through a tenant's
// session. Media is base64-encoded when MimeType is set.
type SendRequest struct {
	ClientID string `json:"clientId"`
	RemoteID string `json:"remoteId"`
	Message  string `json:"message"`
	MimeType string `json:"mimeType,omitempty"`
	Media    string `json:"media,omitempty"`
}
