// Package gatewaydto holds the wire types of the gateway API: request and
// response bodies plus the websocket event stream payloads.
package gatewaydto

// CreateSessionRequest starts a new session. All fields are optional: FEN
// defaults to the standard start position, strength comes from the server
// defaults, and a named tier overrides skill level and thinking time at
// once. Explicit skill_level/min_think_ms win over the tier.
type CreateSessionRequest struct {
	FEN        string `json:"fen,omitempty"`
	Tier       string `json:"tier,omitempty"`
	SkillLevel *int   `json:"skill_level,omitempty"`
	MinThinkMS *int   `json:"min_think_ms,omitempty"`
}

type SetPositionRequest struct {
	FEN string `json:"fen"`
}

// MoveRequest plays one move. Either text carries a full coordinate move
// ("e2e4", "a7a8q", "e1g1"), or kind selects an entry point:
//
//	plain      from/to
//	castle     side ("king" or "queen")
//	en_passant from
//	promotion  from/to/promotion (piece letter, queen when empty)
type MoveRequest struct {
	Text      string `json:"text,omitempty"`
	Kind      string `json:"kind,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Side      string `json:"side,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

type SetOptionRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MatchRequest checks a claimed legal-move list against the position.
// from/to are parallel origin and destination square lists.
type MatchRequest struct {
	From    []string `json:"from"`
	To      []string `json:"to"`
	Ordered bool     `json:"ordered"`
}
