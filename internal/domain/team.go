package domain

// Team is the side a player is on, as it appears in server logs.
type Team string

const (
	TeamTerrorist  Team = "TERRORIST"
	TeamCT         Team = "CT"
	TeamUnassigned Team = "Unassigned"
	TeamSpectator  Team = "Spectator"
	TeamConsole    Team = "Console"
)

// Playing reports whether the team takes part in the match.
func (t Team) Playing() bool {
	return t == TeamTerrorist || t == TeamCT
}

// Opponent returns the other playing team. Non-playing teams map to themselves.
func (t Team) Opponent() Team {
	switch t {
	case TeamTerrorist:
		return TeamCT
	case TeamCT:
		return TeamTerrorist
	}
	return t
}

// DisplayName returns the long form used in chat announcements.
func (t Team) DisplayName() string {
	switch t {
	case TeamTerrorist:
		return "Terrorists"
	case TeamCT:
		return "Counter-Terrorists"
	}
	return string(t)
}
