package domain

// Account is a registered identity. ID is assigned by the store on creation
// and omitted from the wire representation until then.
type Account struct {
	ID       int64  `json:"id,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
}
