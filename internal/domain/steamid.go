package domain

import (
	"regexp"
	"strconv"
)

// Valve's 64-bit ID space starts here for individual accounts.
const steamID64Base = 76561197960265728

var (
	steam2Regex  = regexp.MustCompile(`^STEAM_[0-5]:([01]):(\d+)$`)
	steam3Regex  = regexp.MustCompile(`^\[?U:1:(\d+)\]?$`)
	steam64Regex = regexp.MustCompile(`^\d{17}$`)
)

// SteamID64 canonicalizes a Steam ID to its 64-bit form. It accepts the
// STEAM_X:Y:Z, [U:1:N] and plain 64-bit renderings. Anything else (the
// literal "BOT", empty strings) is returned unchanged so callers can
// compare without special-casing.
func SteamID64(id string) string {
	if m := steam2Regex.FindStringSubmatch(id); m != nil {
		y, _ := strconv.ParseUint(m[1], 10, 64)
		z, _ := strconv.ParseUint(m[2], 10, 64)
		return strconv.FormatUint(steamID64Base+z*2+y, 10)
	}
	if m := steam3Regex.FindStringSubmatch(id); m != nil {
		n, _ := strconv.ParseUint(m[1], 10, 64)
		return strconv.FormatUint(steamID64Base+n, 10)
	}
	if steam64Regex.MatchString(id) {
		return id
	}
	return id
}
