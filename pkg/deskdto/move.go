package deskdto

// MoveRequest is one attempted move: source and target squares in
// algebraic square naming ("e2", "e4").
type MoveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// MoveResponse reports the outcome. On rejection Snapback is true and
// the state is unchanged.
type MoveResponse struct {
	Accepted bool          `json:"accepted"`
	Snapback bool          `json:"snapback,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	State    *SessionState `json:"state,omitempty"`
}
