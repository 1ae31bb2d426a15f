package match

import (
	"fmt"
	"os"
	"regexp"
)

// ConfigFiles names the exec-style config file for each match phase. Paths
// may be empty, in which case the phase enqueues nothing.
type ConfigFiles struct {
	Warmup   string
	Match    string
	Knife    string
	Overtime string
	FullMap  string
}

var lineBreakRegex = regexp.MustCompile(`(\r\n\t|\n|\r\t|\r\n|\r)`)

// loadConfigFile reads a game config file and flattens it into one
// ";"-joined command string so it can be enqueued like any other command.
func loadConfigFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading game config: %w", err)
	}
	return lineBreakRegex.ReplaceAllString(string(data), "; "), nil
}
