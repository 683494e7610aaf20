package player

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ConfigureMocp points mocp's OnStop hook at self, so that mocp calls back
// into the daemon when a song ends. An existing OnStop line for another
// program is commented out. It reports whether the file was changed.
func ConfigureMocp(path, self string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to read mocp config %s: %w", path, err)
	}

	lines := strings.SplitAfter(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	found := -1
	for i, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "OnStop") {
			found = i
			break
		}
	}
	if found >= 0 && onStopValue(lines[found]) == self {
		return false, nil
	}

	if found >= 0 {
		lines[found] = "#" + lines[found]
	}
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		lines[n-1] += "\n"
	}
	lines = append(lines, "# This line was added by `lyra'\n", fmt.Sprintf("OnStop = \"%s\"\n", self))

	if err := os.WriteFile(path, []byte(strings.Join(lines, "")), 0644); err != nil {
		return false, fmt.Errorf("failed to write mocp config %s: %w", path, err)
	}
	return true, nil
}

func onStopValue(line string) string {
	_, value, ok := strings.Cut(line, "=")
	if !ok {
		return ""
	}
	return strings.Trim(strings.TrimSpace(value), ` "`)
}
