// Package validator provides composable per-field validation rules.
//
// Rules are plain value checks combined with Apply, which collects every
// failure into a ValidationErrors value keyed by field name so HTTP
// handlers can return field-specific messages:
//
//	err := validator.Apply(
//	    validator.RequiredString("name", in.Name),
//	    validator.ValidEmail("email", in.Email),
//	    validator.MinLenString("password", in.Password, 6),
//	)
package validator
