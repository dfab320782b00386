package shared

// Notice is a short human-readable message shown after a user-initiated action fails or is refused.
type Notice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// NewNotice creates a [Notice].
func NewNotice(title, description string) *Notice {
	return &Notice{Title: title, Description: description}
}

func (n *Notice) String() string {
	if n == nil {
		return ""
	}
	if n.Description == "" {
		return n.Title
	}
	return n.Title + ": " + n.Description
}
