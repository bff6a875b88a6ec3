package tasks

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/spindb/internal/shared"
)

// spinPattern matches the date token that opens every spin playlist name, e.g. "1/15".
var spinPattern = regexp.MustCompile(`^\d+/`)

// IsSpinPlaylist reports whether name begins with a decimal number followed by a slash.
//
// Playlists that fail this check are skipped silently; they are not errors.
func IsSpinPlaylist(name string) bool {
	return spinPattern.MatchString(name)
}

// SplitName splits a spin playlist name into its date and title on the first space only.
//
// "1/15 Winter Mix" yields ("1/15", "Winter Mix"). A name without a space wraps [shared.ErrPlaylistFormat].
func SplitName(name string) (date, title string, err error) {
	date, title, ok := strings.Cut(name, " ")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", shared.ErrPlaylistFormat, name)
	}
	return date, title, nil
}
