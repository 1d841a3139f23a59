// Package directory binds services to LDAP directories through go-ldap.
//
// An Accessor serves one kind of entry, described by a Schema: the subtree
// it lives in, its object classes and its naming attribute. Identifiers are
// entry DNs; NormalizeID also accepts a bare RDN value.
//
//	conn, err := directory.Dial(ctx, cfg)
//	people := directory.NewService(directory.NewAccessor(conn, directory.Schema{
//		BaseDN:        "ou=people,dc=example,dc=org",
//		ObjectClasses: []string{"inetOrgPerson"},
//		RDN:           "uid",
//		Aliases:       map[string]string{"email": "mail"},
//	}))
//
//	ada, err := people.GetOrFail(ctx, "ada") // uid=ada,ou=people,dc=example,dc=org
//	admins, err := people.Find(ctx, service.Criteria{"ou": "admins"})
//
// Find criteria compose into a conjunction filter with the object classes,
// for example (&(objectClass=inetOrgPerson)(ou=admins)).
package directory
