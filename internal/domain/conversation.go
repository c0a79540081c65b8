package domain

// Conversation stores aggregate state for one chat thread.
// Totals equal the sums over the thread's messages after a successful turn.
type Conversation struct {
	ConversationID    string  `json:"conversationId"`
	Title             string  `json:"title"`
	UserID            string  `json:"userId"`
	OrganizationID    string  `json:"organizationId,omitempty"`
	CompanyID         string  `json:"companyId,omitempty"`
	DepartmentID      string  `json:"departmentId,omitempty"`
	ModelID           string  `json:"modelId"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
	MessageCount      int     `json:"messageCount"`
	TotalInputTokens  int     `json:"totalInputTokens"`
	TotalOutputTokens int     `json:"totalOutputTokens"`
	TotalCost         float64 `json:"totalCost"`
}

// ConversationMessage is a single persisted half of a conversation turn.
// Token counts and cost are present only on assistant messages.
type ConversationMessage struct {
	MessageID    string  `json:"messageId"`
	Role         string  `json:"role"`
	Content      string  `json:"content"`
	ModelID      string  `json:"modelId,omitempty"`
	InputTokens  int     `json:"inputTokens"`
	OutputTokens int     `json:"outputTokens"`
	Cost         float64 `json:"cost"`
	CreatedAt    string  `json:"createdAt"`
}
