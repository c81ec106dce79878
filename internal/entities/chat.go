package entities

// Message is a single WhatsApp message embedded in a Chat. Immutable
// once appended; read APIs order by Timestamp descending.
type Message struct {
	Body      string `json:"body"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	To        string `json:"to"`
	From      string `json:"from"`
	FromMe    bool   `json:"fromMe"`
}

// Chat is the persisted conversation between a tenant and one
// counterparty (or group). Upserted per (clientId, remoteId) pair and
// grows monotonically via message appends.
type Chat struct {
	ClientID    string    `json:"clientId"`
	RemoteID    string    `json:"remoteId"`
	IsGroup     bool      `json:"isGroup"`
	ContactName string    `json:"contactName,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	Messages    []Message `json:"messages"`
}

// ChatSummary is the shape broadcast on the "last-chats" event and
// returned by the live chat listing: the driver's native ordering,
// most recently active first.
type ChatSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Timestamp   int64    `json:"timestamp"`
	UnreadCount int      `json:"unreadCount"`
	LastMessage *Message `json:"lastMessage,omitempty"`
}

// MessagePage is the paginated read contract for a chat's history.
type MessagePage struct {
	Messages   []Message  `json:"messages"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	CurrentPage   int `json:"currentPage"`
	TotalPages    int `json:"totalPages"`
	TotalMessages int `json:"totalMessages"`
}
