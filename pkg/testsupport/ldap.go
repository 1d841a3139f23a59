package testsupport

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-ldap/ldap/v3"
)

// Directory is an in-memory LDAP server stand-in. It understands base and
// subtree searches with equality filters joined by '&', which is what the
// directory accessor emits, and enforces a per-object-class attribute list
// so schema violations can be exercised.
type Directory struct {
	mu      sync.Mutex
	entries map[string]*ldap.Entry
	order   []string
	allowed map[string]map[string]bool
	calls   map[string]int
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		entries: make(map[string]*ldap.Entry),
		allowed: make(map[string]map[string]bool),
		calls:   make(map[string]int),
	}
}

// AllowAttributes restricts entries of class to attrs (plus objectClass).
func (d *Directory) AllowAttributes(class string, attrs ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := map[string]bool{"objectclass": true}
	for _, a := range attrs {
		set[strings.ToLower(a)] = true
	}
	d.allowed[strings.ToLower(class)] = set
}

// Seed stores an entry without schema checks.
func (d *Directory) Seed(dn string, attrs map[string][]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.put(ldap.NewEntry(dn, attrs))
}

// Calls returns how many times method (Search, Add, Modify, Del) ran.
func (d *Directory) Calls(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[method]
}

// ResetCalls clears the call counters.
func (d *Directory) ResetCalls() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = make(map[string]int)
}

// Len returns the number of stored entries.
func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (d *Directory) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["Search"]++

	match, err := compileFilter(req.Filter)
	if err != nil {
		return nil, ldap.NewError(ldap.LDAPResultFilterError, err)
	}

	res := &ldap.SearchResult{}
	base := normalizeDN(req.BaseDN)
	switch req.Scope {
	case ldap.ScopeBaseObject:
		e, ok := d.entries[base]
		if !ok {
			return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object %q", req.BaseDN))
		}
		if match(e) {
			res.Entries = append(res.Entries, project(e, req.Attributes))
		}
	default:
		for _, key := range d.order {
			if key != base && !strings.HasSuffix(key, ","+base) {
				continue
			}
			if e := d.entries[key]; match(e) {
				res.Entries = append(res.Entries, project(e, req.Attributes))
			}
		}
	}
	if req.SizeLimit > 0 && len(res.Entries) > req.SizeLimit {
		res.Entries = res.Entries[:req.SizeLimit]
		return res, ldap.NewError(ldap.LDAPResultSizeLimitExceeded, fmt.Errorf("size limit %d exceeded", req.SizeLimit))
	}
	return res, nil
}

func (d *Directory) Add(req *ldap.AddRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["Add"]++

	if _, err := ldap.ParseDN(req.DN); err != nil {
		return ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	if _, ok := d.entries[normalizeDN(req.DN)]; ok {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, fmt.Errorf("entry %q exists", req.DN))
	}

	attrs := make(map[string][]string, len(req.Attributes))
	for _, a := range req.Attributes {
		attrs[a.Type] = append([]string(nil), a.Vals...)
	}
	e := ldap.NewEntry(req.DN, attrs)
	if err := d.check(e); err != nil {
		return err
	}
	d.put(e)
	return nil
}

func (d *Directory) Modify(req *ldap.ModifyRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["Modify"]++

	current, ok := d.entries[normalizeDN(req.DN)]
	if !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object %q", req.DN))
	}

	attrs := make(map[string][]string, len(current.Attributes))
	for _, a := range current.Attributes {
		attrs[a.Name] = append([]string(nil), a.Values...)
	}
	for _, change := range req.Changes {
		name := attrName(attrs, change.Modification.Type)
		switch change.Operation {
		case ldap.AddAttribute:
			attrs[name] = append(attrs[name], change.Modification.Vals...)
		case ldap.ReplaceAttribute:
			if len(change.Modification.Vals) == 0 {
				delete(attrs, name)
			} else {
				attrs[name] = append([]string(nil), change.Modification.Vals...)
			}
		case ldap.DeleteAttribute:
			if _, ok := attrs[name]; !ok {
				return ldap.NewError(ldap.LDAPResultNoSuchAttribute, fmt.Errorf("no attribute %q", name))
			}
			delete(attrs, name)
		}
	}

	e := ldap.NewEntry(current.DN, attrs)
	if err := d.check(e); err != nil {
		return err
	}
	d.put(e)
	return nil
}

func (d *Directory) Del(req *ldap.DelRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls["Del"]++

	key := normalizeDN(req.DN)
	if _, ok := d.entries[key]; !ok {
		return ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object %q", req.DN))
	}
	delete(d.entries, key)
	for i, k := range d.order {
		if k == key {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

func (d *Directory) put(e *ldap.Entry) {
	key := normalizeDN(e.DN)
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = e
}

// check enforces the attribute lists registered with AllowAttributes.
func (d *Directory) check(e *ldap.Entry) error {
	classes := e.GetAttributeValues("objectClass")
	if len(classes) == 0 {
		return ldap.NewError(ldap.LDAPResultObjectClassViolation, fmt.Errorf("entry %q has no object class", e.DN))
	}

	var allowed map[string]bool
	for _, class := range classes {
		set, ok := d.allowed[strings.ToLower(class)]
		if !ok {
			continue
		}
		if allowed == nil {
			allowed = make(map[string]bool)
		}
		for a := range set {
			allowed[a] = true
		}
	}
	if allowed == nil {
		return nil
	}
	for _, a := range e.Attributes {
		if !allowed[strings.ToLower(a.Name)] {
			return ldap.NewError(ldap.LDAPResultUndefinedAttributeType, fmt.Errorf("attribute %q not allowed", a.Name))
		}
	}
	return nil
}

func project(e *ldap.Entry, attrs []string) *ldap.Entry {
	out := make(map[string][]string)
	for _, a := range e.Attributes {
		if len(attrs) > 0 && !containsFold(attrs, a.Name) {
			continue
		}
		out[a.Name] = append([]string(nil), a.Values...)
	}
	return ldap.NewEntry(e.DN, out)
}

func attrName(attrs map[string][]string, name string) string {
	for existing := range attrs {
		if strings.EqualFold(existing, name) {
			return existing
		}
	}
	return name
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}

func normalizeDN(dn string) string {
	parts := strings.Split(dn, ",")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}

type term struct {
	attr    string
	value   string
	present bool
}

// compileFilter parses "(attr=value)" or "(&(a=b)(c=d)...)". An unescaped
// value of "*" tests presence.
func compileFilter(filter string) (func(*ldap.Entry) bool, error) {
	f := strings.TrimSpace(filter)
	if !strings.HasPrefix(f, "(") || !strings.HasSuffix(f, ")") {
		return nil, fmt.Errorf("malformed filter %q", filter)
	}

	var raw []string
	if strings.HasPrefix(f, "(&") {
		body := f[2 : len(f)-1]
		for body != "" {
			end := strings.IndexByte(body, ')')
			if body[0] != '(' || end < 0 {
				return nil, fmt.Errorf("malformed filter %q", filter)
			}
			raw = append(raw, body[1:end])
			body = body[end+1:]
		}
	} else {
		raw = []string{f[1 : len(f)-1]}
	}

	terms := make([]term, 0, len(raw))
	for _, r := range raw {
		attr, value, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("unsupported filter term %q", r)
		}
		if value == "*" {
			terms = append(terms, term{attr: attr, present: true})
			continue
		}
		unescaped, err := unescapeFilterValue(value)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term{attr: attr, value: unescaped})
	}

	return func(e *ldap.Entry) bool {
		for _, t := range terms {
			vals := valuesFold(e, t.attr)
			if t.present {
				if len(vals) == 0 {
					return false
				}
				continue
			}
			if !containsFold(vals, t.value) {
				return false
			}
		}
		return true
	}, nil
}

func valuesFold(e *ldap.Entry, attr string) []string {
	for _, a := range e.Attributes {
		if strings.EqualFold(a.Name, attr) {
			return a.Values
		}
	}
	return nil
}

func unescapeFilterValue(v string) (string, error) {
	if !strings.Contains(v, `\`) {
		return v, nil
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' {
			b.WriteByte(v[i])
			continue
		}
		if i+3 > len(v) {
			return "", fmt.Errorf("bad escape in %q", v)
		}
		n, err := strconv.ParseUint(v[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("bad escape in %q: %w", v, err)
		}
		b.WriteByte(byte(n))
		i += 2
	}
	return b.String(), nil
}
