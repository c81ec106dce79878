package entities

// Tenant is one independently managed WhatsApp account owned by a
// platform user. The persisted row is independent of whether a live
// session exists for it.
type Tenant struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	WppNumber string `json:"wppNumber"`
	Name      string `json:"name"`
}

// TenantStatus is the normalized connection status for a tenant.
// Absence of a session and any underlying driver error both resolve
// to DISCONNECTED; status queries never fail.
type TenantStatus struct {
	Status   string `json:"status"`
	IsActive bool   `json:"isActive"`
	Message  string `json:"message,omitempty"`
}
