package notification

// ListActivityRequest asks for the most recent activity. A non-positive Limit
// returns everything still retained.
type ListActivityRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ListActivityResponse carries activity newest first.
type ListActivityResponse struct {
	Activities []Activity `json:"activities"`
}
