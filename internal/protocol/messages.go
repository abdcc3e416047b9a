package protocol

// DESCRIBE (simulator -> server): one step worth of agent observations.
type DescribeMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	Step            uint64              `json:"step"`
	Observations    map[string]AgentObs `json:"observations"`
}

// AgentObs is one agent's raw snapshot. Observation holds the local grid as
// newline-separated rows, or the "There are no observations: ..." text for an
// agent that was taken out of the game.
type AgentObs struct {
	Observation    string  `json:"observation"`
	GlobalPosition [2]int  `json:"global_position"`
	Orientation    int     `json:"orientation"`
	LocalPosition  *[2]int `json:"local_position,omitempty"`
	Removed        bool    `json:"removed,omitempty"`
}

// FACTS (server -> simulator/planner)
type FactsMsg struct {
	Type            string              `json:"type"`
	ProtocolVersion string              `json:"protocol_version"`
	Step            uint64              `json:"step"`
	Facts           map[string][]string `json:"facts"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Step            uint64 `json:"step,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewErrorMsg(step uint64, code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		Step:            step,
		Code:            code,
		Message:         message,
	}
}
