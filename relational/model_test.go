package relational_test

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/uptrace/bun"
)

type Widget struct {
	bun.BaseModel `bun:"table:widgets"`

	ID     int64  `bun:"id,pk,autoincrement" json:"id"`
	Name   string `bun:"name,notnull,unique" json:"name"`
	Color  string `bun:"color" json:"color"`
	Weight int    `bun:"weight" json:"weight"`
}

func (w *Widget) Validate() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Name, validation.Required),
		validation.Field(&w.Weight, validation.Min(0)),
	)
}
