package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/rs/zerolog"
)

var (
	// ErrMissingRDN is returned by PersistNew when fields carry no value for
	// the schema RDN attribute.
	ErrMissingRDN = errors.New("directory: missing RDN value")
	// ErrRDNChange is returned by PersistUpdate when fields would rename the
	// entry. Renames need a modify DN operation, which is not supported.
	ErrRDNChange = errors.New("directory: RDN attribute cannot be changed")
)

// Conn is the subset of *ldap.Conn the accessor needs.
type Conn interface {
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
}

var _ Conn = (*ldap.Conn)(nil)

var _ service.Accessor[string, *Entry] = (*Accessor)(nil)

// Option configures an Accessor.
type Option func(*Accessor)

// WithLogger sets the logger used to trace directory operations.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Accessor) {
		a.logger = logger
	}
}

// WithSizeLimit caps the number of entries a search returns. Zero means no
// client side limit.
func WithSizeLimit(n int) Option {
	return func(a *Accessor) {
		a.sizeLimit = n
	}
}

// Accessor reads and writes the entries described by a Schema over conn.
// Identifiers are entry DNs.
type Accessor struct {
	conn      Conn
	schema    Schema
	sizeLimit int
	logger    zerolog.Logger
}

// NewAccessor binds schema to conn.
func NewAccessor(conn Conn, schema Schema, opts ...Option) *Accessor {
	a := &Accessor{
		conn:   conn,
		schema: schema,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Schema returns the schema the accessor was built with.
func (a *Accessor) Schema() Schema {
	return a.schema
}

// ListAll enumerates the subtree under the base DN.
func (a *Accessor) ListAll(ctx context.Context) ([]*Entry, error) {
	return a.search(ctx, a.schema.BaseDN, ldap.ScopeWholeSubtree, a.schema.Filter(nil))
}

// FindByID reads the entry named dn. An entry that exists but does not carry
// the schema object classes is reported as missing.
func (a *Accessor) FindByID(ctx context.Context, dn string) (*Entry, error) {
	entries, err := a.search(ctx, dn, ldap.ScopeBaseObject, a.schema.Filter(nil))
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no entry %q", dn))
	}
	return entries[0], nil
}

func (a *Accessor) FindByCriteria(ctx context.Context, criteria service.Criteria) ([]*Entry, error) {
	return a.search(ctx, a.schema.BaseDN, ldap.ScopeWholeSubtree, a.schema.Filter(criteria))
}

// PersistNew adds an entry named after the RDN field. Empty values are
// dropped.
func (a *Accessor) PersistNew(ctx context.Context, fields service.Fields) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attrs := make(map[string][]string, len(fields)+1)
	for field, value := range fields {
		vals := nonEmpty(stringValues(value))
		if len(vals) == 0 {
			continue
		}
		attrs[a.schema.attribute(field)] = vals
	}

	rdn := firstValue(attrs, a.schema.RDN)
	if rdn == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRDN, a.schema.RDN)
	}
	if len(a.schema.ObjectClasses) > 0 {
		attrs["objectClass"] = append([]string(nil), a.schema.ObjectClasses...)
	}

	entry := &Entry{DN: a.schema.DN(rdn), Attributes: attrs}
	req := ldap.NewAddRequest(entry.DN, nil)
	for _, name := range entry.AttributeNames() {
		req.Attribute(name, entry.Attributes[name])
	}
	if err := a.conn.Add(req); err != nil {
		return nil, err
	}

	a.logger.Debug().Str("dn", entry.DN).Msg("entry added")
	return entry, nil
}

// PersistUpdate replaces the attributes named in fields. A value of ""
// removes the attribute.
func (a *Accessor) PersistUpdate(ctx context.Context, entity *Entry, fields service.Fields) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	updated := entity.clone()
	req := ldap.NewModifyRequest(entity.DN, nil)
	for _, field := range sortedFieldNames(fields) {
		attr := a.schema.attribute(field)
		vals := nonEmpty(stringValues(fields[field]))

		if strings.EqualFold(attr, a.schema.RDN) {
			if len(vals) == 1 && vals[0] == entity.Get(attr) {
				continue
			}
			return nil, fmt.Errorf("%w: %s", ErrRDNChange, attr)
		}

		if len(vals) == 0 {
			if len(entity.Values(attr)) > 0 {
				req.Delete(attr, nil)
				updated.remove(attr)
			}
			continue
		}
		req.Replace(attr, vals)
		updated.set(attr, vals)
	}

	if len(req.Changes) == 0 {
		return entity, nil
	}
	if err := a.conn.Modify(req); err != nil {
		return nil, err
	}
	*entity = *updated
	return entity, nil
}

func (a *Accessor) Remove(ctx context.Context, entity *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.conn.Del(ldap.NewDelRequest(entity.DN, nil)); err != nil {
		return err
	}
	a.logger.Debug().Str("dn", entity.DN).Msg("entry deleted")
	return nil
}

func (a *Accessor) IdentifierOf(entity *Entry) string {
	if entity == nil {
		return ""
	}
	return entity.DN
}

// NormalizeID returns the canonical spelling of a DN. A bare RDN value is
// first expanded into a full DN under the base DN.
func (a *Accessor) NormalizeID(id string) string {
	if id == "" {
		return id
	}
	if !strings.Contains(id, "=") {
		id = a.schema.DN(id)
	}
	return canonicalDN(id)
}

func (a *Accessor) search(ctx context.Context, base string, scope int, filter string) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := ldap.NewSearchRequest(
		base,
		scope,
		ldap.NeverDerefAliases,
		a.sizeLimit,
		0,
		false,
		filter,
		a.schema.Attributes,
		nil,
	)
	a.logger.Debug().Str("base", base).Str("filter", filter).Msg("search")

	res, err := a.conn.Search(req)
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(res.Entries))
	for _, le := range res.Entries {
		entries = append(entries, fromLDAP(le))
	}
	return entries, nil
}

func firstValue(attrs map[string][]string, attr string) string {
	for name, vals := range attrs {
		if strings.EqualFold(name, attr) && len(vals) > 0 {
			return vals[0]
		}
	}
	return ""
}

func nonEmpty(vals []string) []string {
	out := vals[:0:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func sortedFieldNames(fields service.Fields) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
