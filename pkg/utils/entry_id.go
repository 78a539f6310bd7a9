package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var entryIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`fantasy\.premierleague\.com/entry/(\d+)`),
	regexp.MustCompile(`/entry/(\d+)`),
	regexp.MustCompile(`team/(\d+)`),
	regexp.MustCompile(`entry=(\d+)`),
}

var digitRuns = regexp.MustCompile(`\d+`)

// ExtractEntryID accepts a bare FPL entry id or any of the usual FPL team URLs
// and returns the numeric entry id.
func ExtractEntryID(urlOrID string) (int, error) {
	s := strings.TrimSpace(urlOrID)
	if s == "" {
		return 0, fmt.Errorf("empty entry id")
	}

	if id, err := strconv.Atoi(s); err == nil {
		if id <= 0 {
			return 0, fmt.Errorf("invalid entry id %d", id)
		}
		return id, nil
	}

	for _, pattern := range entryIDPatterns {
		if match := pattern.FindStringSubmatch(s); match != nil {
			return strconv.Atoi(match[1])
		}
	}

	// fall back to the longest run of digits
	longest := ""
	for _, run := range digitRuns.FindAllString(s, -1) {
		if len(run) > len(longest) {
			longest = run
		}
	}
	if longest == "" {
		return 0, fmt.Errorf("no entry id found in %q", urlOrID)
	}
	return strconv.Atoi(longest)
}
