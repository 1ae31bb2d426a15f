package collector

import (
	"regexp"
	"strconv"

	"github.com/orangebot/orangebot/internal/domain"
)

// LogEvent represents a parsed event from the server log stream
type LogEvent struct {
	Type string
	Data interface{}
}

// Event types
const (
	EventTypeTeamJoin    = "team_join"
	EventTypeClanTag     = "clantag"
	EventTypeDisconnect  = "disconnect"
	EventTypeMapLoading  = "map_loading"
	EventTypeMapLoaded   = "map_loaded"
	EventTypeRoundStart  = "round_start"
	EventTypeRoundEnd    = "round_end"
	EventTypeGameOver    = "game_over"
	EventTypeChatCommand = "chat_command"
)

// Event data structures
type TeamJoinData struct {
	SteamID string
	NewTeam domain.Team
	Name    string
}

type ClanTagData struct {
	SteamID string
	Team    domain.Team
	Name    string
	Tag     string
}

type DisconnectData struct {
	SteamID string
}

type MapLoadedData struct {
	Map string
}

type RoundEndData struct {
	CTScore int
	TScore  int
}

type ChatCommandData struct {
	PlayerID string
	SteamID  string
	Team     domain.Team
	Cmdline  string
}

// Regular expressions for parsing log lines. Log lines arrive with an
// engine timestamp prefix, so the patterns are deliberately unanchored.
var (
	teamJoinRegex    = regexp.MustCompile(`"(.+)[<](\d+)[>][<](.*)[>]" switched from team [<](CT|TERRORIST|Unassigned|Spectator)[>] to [<](CT|TERRORIST|Unassigned|Spectator)[>]`)
	clanTagRegex     = regexp.MustCompile(`"(.+)[<](\d+)[>][<](.*?)[>][<](CT|TERRORIST|Unassigned|Spectator)[>]" triggered "clantag" \(value "(.*)"\)`)
	disconnectRegex  = regexp.MustCompile(`"(.+)[<](\d+)[>][<](.*)[>][<](CT|TERRORIST|Unassigned|Spectator)[>]" disconnected`)
	mapLoadingRegex  = regexp.MustCompile(`Loading map "(.*?)"`)
	mapLoadedRegex   = regexp.MustCompile(`Started map "(.*?)"`)
	roundStartRegex  = regexp.MustCompile(`World triggered "Round_Start"`)
	roundEndRegex    = regexp.MustCompile(`Team "(.*)" triggered "SFUI_Notice_(Terrorists_Win|CTs_Win|Target_Bombed|Target_Saved|Bomb_Defused)" \(CT "(\d+)"\) \(T "(\d+)"\)`)
	gameOverRegex    = regexp.MustCompile(`Game Over: competitive`)
	chatCommandRegex = regexp.MustCompile(`"(.+)[<](\d+)[>][<](.*)[>][<](CT|TERRORIST|Unassigned|Spectator|Console)[>]" say(_team)? "[!.](.*)"`)
)

// Parse classifies a single log line. The second return value is false for
// lines that are not interesting to the bot, which is the common case and
// not an error.
func Parse(line string) (*LogEvent, bool) {
	if match := teamJoinRegex.FindStringSubmatch(line); match != nil {
		return &LogEvent{
			Type: EventTypeTeamJoin,
			Data: TeamJoinData{
				SteamID: match[3],
				NewTeam: domain.Team(match[5]),
				Name:    match[1],
			},
		}, true
	}

	if match := clanTagRegex.FindStringSubmatch(line); match != nil {
		return &LogEvent{
			Type: EventTypeClanTag,
			Data: ClanTagData{
				SteamID: match[3],
				Team:    domain.Team(match[4]),
				Name:    match[1],
				Tag:     match[5],
			},
		}, true
	}

	if match := disconnectRegex.FindStringSubmatch(line); match != nil {
		return &LogEvent{
			Type: EventTypeDisconnect,
			Data: DisconnectData{SteamID: match[3]},
		}, true
	}

	// The handler only wipes the roster, the map name is not needed until
	// the map has actually started.
	if mapLoadingRegex.MatchString(line) {
		return &LogEvent{Type: EventTypeMapLoading}, true
	}

	if match := mapLoadedRegex.FindStringSubmatch(line); match != nil {
		return &LogEvent{
			Type: EventTypeMapLoaded,
			Data: MapLoadedData{Map: match[1]},
		}, true
	}

	if roundStartRegex.MatchString(line) {
		return &LogEvent{Type: EventTypeRoundStart}, true
	}

	if match := roundEndRegex.FindStringSubmatch(line); match != nil {
		ctScore, _ := strconv.Atoi(match[3])
		tScore, _ := strconv.Atoi(match[4])
		return &LogEvent{
			Type: EventTypeRoundEnd,
			Data: RoundEndData{CTScore: ctScore, TScore: tScore},
		}, true
	}

	if gameOverRegex.MatchString(line) {
		return &LogEvent{Type: EventTypeGameOver}, true
	}

	if match := chatCommandRegex.FindStringSubmatch(line); match != nil {
		return &LogEvent{
			Type: EventTypeChatCommand,
			Data: ChatCommandData{
				PlayerID: match[2],
				SteamID:  match[3],
				Team:     domain.Team(match[4]),
				Cmdline:  match[6],
			},
		}, true
	}

	return nil, false
}
