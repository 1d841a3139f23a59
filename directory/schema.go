package directory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// Schema binds an Accessor to one kind of entry.
type Schema struct {
	// BaseDN is the subtree entries live under.
	BaseDN string
	// ObjectClasses every entry carries. They are added on create and
	// required by every search.
	ObjectClasses []string
	// RDN is the attribute naming new entries, e.g. "uid" or "cn".
	RDN string
	// Attributes limits what searches return. Empty means all user attributes.
	Attributes []string
	// Aliases maps logical field names to LDAP attribute names.
	Aliases map[string]string
}

// attribute resolves a logical field name.
func (s Schema) attribute(field string) string {
	if attr, ok := s.Aliases[field]; ok {
		return attr
	}
	return field
}

// DN builds the name of the entry whose RDN attribute has value.
func (s Schema) DN(value string) string {
	return s.RDN + "=" + escapeRDNValue(value) + "," + s.BaseDN
}

// Filter composes the search filter for criteria: every object class and
// every attribute/value pair must match. Keys are sorted and values escaped.
func (s Schema) Filter(criteria map[string]any) string {
	var parts []string
	for _, class := range s.ObjectClasses {
		parts = append(parts, "(objectClass="+ldap.EscapeFilter(class)+")")
	}

	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attr := ldap.EscapeFilter(s.attribute(k))
		for _, v := range stringValues(criteria[k]) {
			parts = append(parts, "("+attr+"="+ldap.EscapeFilter(v)+")")
		}
	}

	if len(parts) == 0 {
		return "(objectClass=*)"
	}
	return "(&" + strings.Join(parts, "") + ")"
}

// stringValues flattens a field value into LDAP attribute values.
func stringValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(t)}
	}
}

// canonicalDN renders dn with lower-cased attribute types and values, sorted
// multi-valued RDNs and uniform escaping, so that spellings the server treats
// as equal compare equal. Unparseable input is returned trimmed.
func canonicalDN(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		return strings.TrimSpace(dn)
	}

	rdns := make([]string, 0, len(parsed.RDNs))
	for _, rdn := range parsed.RDNs {
		pairs := make([]string, 0, len(rdn.Attributes))
		for _, atv := range rdn.Attributes {
			pairs = append(pairs, strings.ToLower(atv.Type)+"="+escapeRDNValue(strings.ToLower(atv.Value)))
		}
		sort.Strings(pairs)
		rdns = append(rdns, strings.Join(pairs, "+"))
	}
	return strings.Join(rdns, ",")
}

// escapeRDNValue escapes the characters RFC 4514 reserves in attribute values.
func escapeRDNValue(value string) string {
	var b strings.Builder
	for i, r := range value {
		switch {
		case strings.ContainsRune(`,+"\<>;=`, r):
			b.WriteByte('\\')
		case r == '#' && i == 0:
			b.WriteByte('\\')
		case r == ' ' && (i == 0 || i == len(value)-1):
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
