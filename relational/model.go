package relational

import (
	"fmt"
	"reflect"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-servicelayer/service"
	"github.com/mitchellh/mapstructure"
)

// DefaultIDColumn is the primary key column used when none is configured.
const DefaultIDColumn = "id"

// extractID reads the integer primary key of model using reflection.
func extractID(model any) (int64, error) {
	v := reflect.ValueOf(model)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return 0, fmt.Errorf("relational: nil model")
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return 0, fmt.Errorf("relational: %T is not a struct", model)
	}

	for _, fieldName := range []string{"ID", "Id", "id"} {
		field := v.FieldByName(fieldName)
		if !field.IsValid() || !field.CanInterface() {
			continue
		}
		switch field.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return field.Int(), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return int64(field.Uint()), nil
		}
		return 0, fmt.Errorf("relational: %T.%s is not an integer", model, fieldName)
	}
	return 0, fmt.Errorf("relational: no ID field found in %T", model)
}

// decodeFields copies fields onto model. Keys are bun column names, values
// are converted weakly ("3" fills an int) and unknown keys are rejected.
func decodeFields(fields service.Fields, model any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "bun",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           model,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]any(fields))
}

// validateModel runs the model's own validation rules, if it has any.
func validateModel(model any) error {
	if v, ok := model.(validation.Validatable); ok {
		return v.Validate()
	}
	return nil
}

// prepare decodes fields onto model and validates the result.
func prepare(fields service.Fields, model any) error {
	if err := decodeFields(fields, model); err != nil {
		return err
	}
	return validateModel(model)
}
