package mqtt

import "strings"

// DefaultTopicPrefix is used when the configured prefix is empty.
const DefaultTopicPrefix = "graylogic/deck"

// Topics builds the deck's MQTT topics under a configurable prefix.
//
//	topics := mqtt.Topics{Prefix: "home/deck"}
//	topics.Press("actions/mirabox/button-3")
//	// Returns: "home/deck/actions/mirabox/button-3"
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	p := strings.Trim(t.Prefix, "/")
	if p == "" {
		return DefaultTopicPrefix
	}
	return p
}

// Press returns the topic a button press with the given action path is
// published to. Leading slashes on path are ignored.
//
// Example: graylogic/deck/actions/mirabox/button-1
func (t Topics) Press(path string) string {
	return t.prefix() + "/" + strings.TrimLeft(path, "/")
}

// Status returns the retained online/offline status topic.
//
// Example: graylogic/deck/status
func (t Topics) Status() string {
	return t.prefix() + "/status"
}

// AllPresses returns a pattern matching every press topic.
//
// Pattern: graylogic/deck/actions/#
func (t Topics) AllPresses() string {
	return t.prefix() + "/actions/#"
}
