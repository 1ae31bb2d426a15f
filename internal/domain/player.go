package domain

import "regexp"

// Player represents a player currently known on a server. The roster is
// keyed by SteamID, so the ID stays stable across team and name changes.
type Player struct {
	SteamID string `json:"steam_id"`
	Team    Team   `json:"team"`
	Name    string `json:"name"`
	ClanTag string `json:"clan_tag,omitempty"`
	HasTag  bool   `json:"-"`
}

var (
	safeStringRegex = regexp.MustCompile(`[^A-Za-z0-9: \-_,]`)
	safeChatRegex   = regexp.MustCompile(`[^A-Za-z0-9:<>.?! \-_,]`)
)

// CleanString strips a string down to characters that are safe to embed
// in an RCON command argument (team labels, demo names).
func CleanString(s string) string {
	return safeStringRegex.ReplaceAllString(s, "")
}

// CleanChatString sanitizes operator-supplied chat text before it is
// relayed through a say command. Common umlauts are transliterated first.
func CleanChatString(s string) string {
	replaced := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case 'ä':
			replaced = append(replaced, 'a')
		case 'ö':
			replaced = append(replaced, 'o')
		default:
			replaced = append(replaced, r)
		}
	}
	return safeChatRegex.ReplaceAllString(string(replaced), "")
}
