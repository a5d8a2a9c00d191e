// Package search finds email addresses for a search key, either from the
// placeholder web engines or from the local mailbox directory.
package search

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownEngine = errors.New("unknown search engine")

// Engine is a search source.
type Engine int

const (
	Google Engine = iota + 1
	Bing
	Yahoo
	DuckDuckGo
	Mailbox
)

var engineNames = [...]string{
	Google:     "google",
	Bing:       "bing",
	Yahoo:      "yahoo",
	DuckDuckGo: "duckduckgo",
	Mailbox:    "mailbox",
}

var engineHosts = [...]string{
	Google:     "google.com",
	Bing:       "bing.com",
	Yahoo:      "search.yahoo.com",
	DuckDuckGo: "duckduckgo.com",
}

// Engines lists every engine in declaration order.
func Engines() []Engine {
	return []Engine{Google, Bing, Yahoo, DuckDuckGo, Mailbox}
}

func (e Engine) valid() bool {
	return e >= Google && e <= Mailbox
}

func (e Engine) String() string {
	if !e.valid() {
		return fmt.Sprintf("Engine(%d)", int(e))
	}
	return engineNames[e]
}

// Simulated reports whether results come from the placeholder generator.
func (e Engine) Simulated() bool {
	return e.valid() && e != Mailbox
}

// ParseEngine maps a case-insensitive engine name to its Engine.
func ParseEngine(name string) (Engine, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, e := range Engines() {
		if engineNames[e] == name {
			return e, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEngine, name)
}

// ParseEngines parses a list of names, dropping duplicates.
func ParseEngines(names []string) ([]Engine, error) {
	seen := make(map[Engine]bool, len(names))
	engines := make([]Engine, 0, len(names))
	for _, n := range names {
		e, err := ParseEngine(n)
		if err != nil {
			return nil, err
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		engines = append(engines, e)
	}
	return engines, nil
}
