package gatewaydto

// SessionState is the common session snapshot carried by most responses.
type SessionState struct {
	SessionID  string   `json:"session_id"`
	State      string   `json:"state"`
	FEN        string   `json:"fen"`
	Turn       string   `json:"turn"`
	Moves      []string `json:"moves"`
	FiftyCount int      `json:"fifty_count"`
	Draw       bool     `json:"draw"`
}

type CreateSessionResponse struct {
	State     SessionState `json:"state"`
	ApproxElo int          `json:"approx_elo"`
}

type StateResponse struct {
	State SessionState `json:"state"`
}

// ThinkResponse carries the engine's reply. BestMove is "(none)" when the
// position is terminal.
type ThinkResponse struct {
	BestMove string       `json:"best_move"`
	State    SessionState `json:"state"`
}

type LegalMovesResponse struct {
	Moves []string `json:"moves"`
}

type DrawResponse struct {
	Draw       bool `json:"draw"`
	FiftyCount int  `json:"fifty_count"`
}

type MatchResponse struct {
	Match bool `json:"match"`
}

type OptionView struct {
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Value   string   `json:"value,omitempty"`
	Default string   `json:"default,omitempty"`
	Min     int      `json:"min,omitempty"`
	Max     int      `json:"max,omitempty"`
	Vars    []string `json:"vars,omitempty"`
}

type OptionsResponse struct {
	Options []OptionView `json:"options"`
}

type TierView struct {
	Name      string `json:"name"`
	Skill     int    `json:"skill"`
	ThinkMS   int    `json:"think_ms"`
	ApproxElo int    `json:"approx_elo"`
}

type TiersResponse struct {
	Tiers []TierView `json:"tiers"`
}
