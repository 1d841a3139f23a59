package directory

import (
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Entry is a directory object: its distinguished name plus attributes.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Values returns every value of attr. Attribute names are matched without
// regard to case.
func (e *Entry) Values(attr string) []string {
	if e == nil {
		return nil
	}
	if vals, ok := e.Attributes[attr]; ok {
		return vals
	}
	for name, vals := range e.Attributes {
		if strings.EqualFold(name, attr) {
			return vals
		}
	}
	return nil
}

// Get returns the first value of attr, or "".
func (e *Entry) Get(attr string) string {
	vals := e.Values(attr)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// AttributeNames returns the attribute names in sorted order.
func (e *Entry) AttributeNames() []string {
	names := make([]string, 0, len(e.Attributes))
	for name := range e.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Entry) clone() *Entry {
	out := &Entry{DN: e.DN, Attributes: make(map[string][]string, len(e.Attributes))}
	for name, vals := range e.Attributes {
		out.Attributes[name] = append([]string(nil), vals...)
	}
	return out
}

// set replaces attr, reusing the existing spelling of its name.
func (e *Entry) set(attr string, vals []string) {
	for name := range e.Attributes {
		if strings.EqualFold(name, attr) {
			e.Attributes[name] = vals
			return
		}
	}
	e.Attributes[attr] = vals
}

func (e *Entry) remove(attr string) {
	for name := range e.Attributes {
		if strings.EqualFold(name, attr) {
			delete(e.Attributes, name)
		}
	}
}

func fromLDAP(le *ldap.Entry) *Entry {
	e := &Entry{DN: le.DN, Attributes: make(map[string][]string, len(le.Attributes))}
	for _, attr := range le.Attributes {
		e.Attributes[attr.Name] = append([]string(nil), attr.Values...)
	}
	return e
}
