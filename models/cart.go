package models

import "time"

// Cart is the session scoped shopping cart. It lives in Redis keyed by the
// buyer's session ID and is reconstructed verbatim on every request.
type Cart struct {
	SessionID string     `json:"session_id"`
	Lines     []CartLine `json:"lines"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartLine is one product entry in a cart. Attachments is an ordered list; the
// upload flow only ever populates index 0 but the container stays a list.
type CartLine struct {
	ID          string       `json:"id"`
	ProductID   uint         `json:"product_id"`
	Category    string       `json:"category"`
	Quantity    int          `json:"quantity"`
	Attachments []Attachment `json:"attachments,omitempty"`
	AddedAt     time.Time    `json:"added_at"`
}

// Line returns the cart line with the given id, or nil.
func (c *Cart) Line(id string) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ID == id {
			return &c.Lines[i]
		}
	}
	return nil
}
