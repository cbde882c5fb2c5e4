package domain

// Message is a text post authored by an account. TimePosted is opaque to the
// service layer: it is stored and returned exactly as submitted.
type Message struct {
	ID          int64  `json:"id,omitempty"`
	PostedBy    int64  `json:"postedBy"`
	MessageText string `json:"messageText"`
	TimePosted  int64  `json:"timePosted"`
}
