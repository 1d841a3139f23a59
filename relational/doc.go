// Package relational binds services to relational databases through bun.
//
// Two accessors are provided. BunAccessor issues bun queries directly
// against a bun.IDB. RepositoryAccessor goes through a go-repository-bun
// Repository, so model handlers and hooks configured there keep running.
//
// Both use the integer primary key as identifier, decode Fields onto the
// model with mapstructure using bun column names, and validate models that
// implement validation.Validatable before persisting them:
//
//	type User struct {
//		bun.BaseModel `bun:"table:users"`
//		ID    int64  `bun:"id,pk,autoincrement" json:"id"`
//		Email string `bun:"email,notnull,unique" json:"email"`
//	}
//
//	func (u *User) Validate() error {
//		return validation.ValidateStruct(u, validation.Field(&u.Email, validation.Required, is.Email))
//	}
//
//	users := relational.NewService[User](relational.NewBunAccessor[User](db))
//
// Translate maps sql.ErrNoRows to service.NotFoundError and constraint,
// decoding and validation failures to service.ValidationError.
package relational
