package game

// State is a phase of the room lifecycle.
type State string

const (
	StateWaitingPlayers State = "WAITING_PLAYERS"
	StateQuestionIntro  State = "QUESTION_INTRO"
	StateAnswering      State = "ANSWERING_PHASE"
	StateShowResults    State = "SHOW_RESULTS"
	StateLeaderboard    State = "LEADERBOARD"
	StatePodium         State = "PODIUM"
	StatePaused         State = "PAUSED"
)

func (s State) String() string { return string(s) }

// pausable reports whether the game may be paused from s. Pausing during
// the answering phase is rejected so a running question timer never has to
// freeze.
func (s State) pausable() bool {
	return s == StateShowResults || s == StateLeaderboard
}
