package button

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-deck/internal/protocol"
)

// pressPathFormat is the action path sent for button n.
const pressPathFormat = "actions/mirabox/button-%d"

// PressPath returns the action path for a 1-based button index.
func PressPath(index int) string {
	return fmt.Sprintf(pressPathFormat, index)
}

// PollTimerID is the interval id polling the content file for an instance.
func PollTimerID(id string) string {
	return "text-md-watch-" + id
}

// Settings are the per-instance values the button reads.
type Settings struct {
	// ButtonIndex is set only when the stored value is a JSON number.
	ButtonIndex *int
	HTTPURL     string
}

// ParseSettings reads buttonIndex and httpUrl leniently: values of the
// wrong JSON type are ignored rather than failing the whole object.
func ParseSettings(raw json.RawMessage) Settings {
	var fields map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil {
		return Settings{}
	}

	var s Settings
	if n, ok := fields["buttonIndex"].(float64); ok {
		idx := int(n)
		s.ButtonIndex = &idx
	}
	if u, ok := fields["httpUrl"].(string); ok {
		s.HTTPURL = u
	}
	return s
}

// ButtonIndex picks the index for a press: the configured buttonIndex,
// else row*columns+column+1 from the key coordinates, else 1.
func ButtonIndex(s Settings, coords *protocol.Coordinates, columns int) int {
	if s.ButtonIndex != nil {
		return *s.ButtonIndex
	}
	if coords != nil {
		return coords.Row*columns + coords.Column + 1
	}
	return 1
}

// ResolveURL returns the press target: an absolute httpUrl as-is, a
// relative one joined to baseURL, or defaultURL when unset.
func ResolveURL(httpURL, baseURL, defaultURL string) string {
	switch {
	case httpURL == "":
		return defaultURL
	case strings.HasPrefix(httpURL, "http://"), strings.HasPrefix(httpURL, "https://"):
		return httpURL
	case strings.HasPrefix(httpURL, "/"):
		return strings.TrimRight(baseURL, "/") + httpURL
	default:
		return strings.TrimRight(baseURL, "/") + "/" + httpURL
	}
}
