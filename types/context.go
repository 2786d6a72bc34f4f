package types

// TenantConfig carries the per-tenant settings relevant to dispatching.
type TenantConfig struct {
	Domain       string   `json:"domain"`
	BusinessName string   `json:"business_name,omitempty"`
	Services     []string `json:"services,omitempty"`
}

// ConversationContext is supplied by the caller on every dispatch and
// workflow call. It scopes which functions are visible (tenant domain)
// and identifies the end user the conversation belongs to.
type ConversationContext struct {
	TenantID     string       `json:"tenant_id"`
	UserID       string       `json:"user_id,omitempty"`
	PhoneNumber  string       `json:"phone_number,omitempty"`
	SessionID    string       `json:"session_id,omitempty"`
	TenantConfig TenantConfig `json:"tenant_config"`
}

// Domain returns the tenant's business vertical.
func (c ConversationContext) Domain() string {
	return c.TenantConfig.Domain
}
