package model

// Classification categorizes tasks and attachments. Tasks keep a
// ClassificationSummary snapshot rather than a live reference.
type Classification struct {
	ID       string
	Key      string
	ParentID string
	Category string
	Type     string
	Domain   string
	Name     string
	Priority int
	Customs  [8]string
}

// Summary returns the snapshot stored on tasks and attachments
func (c *Classification) Summary() ClassificationSummary {
	return ClassificationSummary{
		ID:       c.ID,
		Key:      c.Key,
		Category: c.Category,
		Priority: c.Priority,
	}
}
