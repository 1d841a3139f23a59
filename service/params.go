package service

// formKeys are submitted by HTML forms alongside model fields and never
// belong to an entity.
var formKeys = []string{"csrf_token", "submit"}

// PreprocessFields returns a copy of fields without form bookkeeping keys.
func PreprocessFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	for _, k := range formKeys {
		delete(out, k)
	}
	return out
}
