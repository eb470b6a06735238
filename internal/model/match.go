package model

// TicketMatch is a single retrieval hit. Transient, returned to the caller.
type TicketMatch struct {
	TicketID string            `json:"ticket_id"`
	Score    float32           `json:"relevance_score"`
	Metadata map[string]string `json:"metadata"`
}

// IndexStats reports index health, not performance.
type IndexStats struct {
	TotalDocuments int64  `json:"total_documents"`
	EmbedModel     string `json:"embed_model"`
	Collection     string `json:"collection"`
}
