package validator

// Validator validates request structs tagged with `validate:"..."`.
type Validator interface {
	// Validate returns a ValidationError keyed by snake_case field name, or
	// nil when data is valid.
	Validate(data any) error
}
