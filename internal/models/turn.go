package models

// Role tells who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDetective Role = "detective"
	RoleSuspect   Role = "suspect"
)

// Turn is one message of an interrogation.
type Turn struct {
	Role    Role
	Content string
	// Position is the 0-based index of the turn in the suspect's history.
	Position int64
}

// Verdict is the outcome of an accusation.
type Verdict struct {
	// Accused is the suspect the accusation resolved to.
	Accused    string
	Correct    bool
	GuiltyName string
	// Catch explains how the murderer gave themselves away.
	Catch string
}
