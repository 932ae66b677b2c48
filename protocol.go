package subscription

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Factory builds a subscription from an untyped attribute record, as a
// host reads it from a declarative test description.
type Factory func(attrs map[string]any, opts ...Option) (Subscription, error)

// Attribute describes one field of a protocol's attribute record.
type Attribute struct {
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
}

// HookSchema lists the argument names a hook event carries.
type HookSchema struct {
	Arguments []string `json:"arguments"`
}

// Schema is the capability metadata a host uses to validate and document
// attribute records.
type Schema struct {
	Attributes map[string]Attribute  `json:"attributes"`
	Hooks      map[string]HookSchema `json:"hooks"`
}

// Protocol is a registrable subscription type.
type Protocol struct {
	Name             string   `json:"name"`
	AlternativeNames []string `json:"alternativeNames,omitempty"`
	Library          string   `json:"library,omitempty"`
	Description      string   `json:"description,omitempty"`
	Homepage         string   `json:"homepage,omitempty"`
	LibraryHomepage  string   `json:"libraryHomepage,omitempty"`
	Schema           Schema   `json:"schema"`
	Factory          Factory  `json:"-"`
}

// Names returns the primary name followed by the alternatives.
func (p Protocol) Names() []string {
	return lo.Uniq(append([]string{p.Name}, p.AlternativeNames...))
}

// Matches reports whether name selects p.
func (p Protocol) Matches(name string) bool {
	return lo.Contains(p.Names(), name)
}

var (
	mu        sync.RWMutex
	protocols = make(map[string]Protocol)
)

// Register adds a protocol. Drivers call this from init().
// A later registration under the same name replaces the earlier one.
func Register(p Protocol) {
	mu.Lock()
	defer mu.Unlock()
	protocols[p.Name] = p
}

// Lookup finds a protocol by its name or one of its alternative names.
func Lookup(name string) (Protocol, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if p, ok := protocols[name]; ok {
		return p, true
	}
	return lo.Find(lo.Values(protocols), func(p Protocol) bool {
		return p.Matches(name)
	})
}

// Create instantiates a subscription of the named protocol.
func Create(name string, attrs map[string]any, opts ...Option) (Subscription, error) {
	p, ok := Lookup(name)
	if !ok || p.Factory == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownProtocol, name)
	}
	return p.Factory(attrs, opts...)
}

// Protocols returns every registered protocol sorted by name.
func Protocols() []Protocol {
	mu.RLock()
	defer mu.RUnlock()
	list := lo.Values(protocols)
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
