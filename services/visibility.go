package services

import "marketplace-server/models"

// RedactUnsent strips the payload of a message unsent for everyone. The row
// stays in the sequence so clients keep ordering and render a placeholder
// from IsDeleted.
func RedactUnsent(m models.Message) models.Message {
	m.Content = ""
	m.Image = ""
	m.Video = ""
	m.ProductID = nil
	m.Product = nil
	return m
}

// FilterVisible computes the per-viewer view of a message sequence:
// messages the viewer deleted for themselves are dropped entirely, unsent
// messages stay in place redacted. Deletions must be preloaded.
func FilterVisible(msgs []models.Message, viewerID uint) []models.Message {
	visible := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if m.DeletedFor(viewerID) {
			continue
		}
		if m.IsDeleted {
			m = RedactUnsent(m)
		}
		visible = append(visible, m)
	}
	return visible
}
