// Package params assembles the ordered parameter groups handed to a RASCAS
// survey setup for one halo and one photometric band.
package params

import (
	"strconv"
	"strings"

	"github.com/papapumpkin/haloprep/internal/catalog"
)

// Entry is one named parameter with its formatted value.
type Entry struct {
	Key   string
	Value string
}

// Group is an ordered set of parameters belonging to one section of a
// RASCAS parameter file. Groups are values; Set returns a modified copy.
type Group struct {
	Name    string
	Entries []Entry
}

// NewGroup builds a group from alternating key, value pairs.
func NewGroup(name string, kv ...string) Group {
	g := Group{Name: name, Entries: make([]Entry, 0, len(kv)/2)}
	for i := 0; i+1 < len(kv); i += 2 {
		g.Entries = append(g.Entries, Entry{Key: kv[i], Value: kv[i+1]})
	}
	return g
}

// Get returns the value stored under key.
func (g Group) Get(key string) (string, bool) {
	for _, e := range g.Entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Set returns a copy of g with key set to value. An existing key keeps its
// position; a new key is appended.
func (g Group) Set(key, value string) Group {
	out := Group{Name: g.Name, Entries: make([]Entry, len(g.Entries), len(g.Entries)+1)}
	copy(out.Entries, g.Entries)
	for i := range out.Entries {
		if out.Entries[i].Key == key {
			out.Entries[i].Value = value
			return out
		}
	}
	out.Entries = append(out.Entries, Entry{Key: key, Value: value})
	return out
}

// Keys returns the parameter names in order.
func (g Group) Keys() []string {
	keys := make([]string, len(g.Entries))
	for i, e := range g.Entries {
		keys[i] = e.Key
	}
	return keys
}

// Float formats v as %.16e so the value survives a text round trip exactly.
func Float(v float64) string {
	return strconv.FormatFloat(v, 'e', 16, 64)
}

// Bool formats b as a Fortran logical.
func Bool(b bool) string {
	if b {
		return "T"
	}
	return "F"
}

// Int formats an integer parameter.
func Int(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Vec formats a position as three space-separated %.16e values.
func Vec(v catalog.Vec3) string {
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = Float(c)
	}
	return strings.Join(parts, " ")
}
