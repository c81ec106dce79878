package entities

// QuickReply is a reusable message template owned by a user.
type QuickReply struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Title  string `json:"title"`
	Text   string `json:"text"`
}
