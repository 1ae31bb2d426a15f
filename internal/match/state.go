package match

import (
	"time"

	"github.com/orangebot/orangebot/internal/domain"
)

// State is the mutable per-server match state. All access goes through the
// owning Server's mutex; State has no locking of its own.
type State struct {
	Live    bool
	Paused  bool
	Freeze  bool
	Knife   bool
	Record  bool
	OT      bool
	FullMap bool

	Map      string
	Maps     []string
	MapIndex int

	// Score is keyed by map, then by derived team label.
	Score map[string]map[string]int

	// KnifeWinner is set exactly while a knife decider awaits !stay/!swap.
	KnifeWinner domain.Team

	DemoName string

	// PauseTime and ReadyTime are limits in seconds; -1 means unlimited.
	PauseTime int
	ReadyTime int

	// Ready doubles as "ready to start" before the match is live and is
	// untouched while live. Unpause carries the same protocol during a
	// pause. Which pair applies is decided solely by Live && Paused.
	Ready   map[domain.Team]bool
	Unpause map[domain.Team]bool

	Players map[string]*domain.Player

	LastLog time.Time
}

func newState(defaults Defaults) *State {
	return &State{
		Knife:     defaults.Knife,
		Record:    defaults.Record,
		OT:        defaults.OT,
		FullMap:   defaults.FullMap,
		PauseTime: defaults.PauseTime,
		ReadyTime: defaults.ReadyTime,
		Score:     make(map[string]map[string]int),
		Ready:     map[domain.Team]bool{domain.TeamTerrorist: false, domain.TeamCT: false},
		Unpause:   map[domain.Team]bool{domain.TeamTerrorist: false, domain.TeamCT: false},
		Players:   make(map[string]*domain.Player),
	}
}

// GetPlayer returns the roster entry for a steam id, or nil
func (s *State) GetPlayer(steamID string) *domain.Player {
	return s.Players[steamID]
}

// AddPlayer inserts a fresh roster entry
func (s *State) AddPlayer(steamID string, team domain.Team, name string) *domain.Player {
	p := &domain.Player{SteamID: steamID, Team: team, Name: name}
	s.Players[steamID] = p
	return p
}

// DeletePlayer removes a roster entry if present
func (s *State) DeletePlayer(steamID string) {
	delete(s.Players, steamID)
}

// ClearPlayers wipes the roster. Identities are re-announced after a map load.
func (s *State) ClearPlayers() {
	s.Players = make(map[string]*domain.Player)
}

func (s *State) resetReady() {
	s.Ready[domain.TeamTerrorist] = false
	s.Ready[domain.TeamCT] = false
}

func (s *State) resetUnpause() {
	s.Unpause[domain.TeamTerrorist] = false
	s.Unpause[domain.TeamCT] = false
}
