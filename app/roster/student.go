// Package roster defines the student record of the band roster, its validation rules
// and the pure helpers used by the UI: search filtering, age calculation and seed data.
package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// NoPhone is stored in telefono for records created without a contact phone
const NoPhone = "N/A"

// BirthDateLayout is the layout of birth dates submitted by the html form
const BirthDateLayout = "2006-01-02"

// minBirthDate is the earliest accepted birth date
var minBirthDate = time.Date(1950, time.January, 1, 0, 0, 0, 0, time.UTC)

// Student is a single enrolled band member
type Student struct {
	ID               string    `json:"id" yaml:"id" jsonschema:"description=opaque unique id assigned by the store"`
	Nombre           string    `json:"nombre" yaml:"nombre" jsonschema:"required,minLength=2"`
	Apellido         string    `json:"apellido" yaml:"apellido" jsonschema:"required,minLength=2"`
	Cedula           string    `json:"cedula" yaml:"cedula" jsonschema:"required,minLength=5"`
	Telefono         string    `json:"telefono" yaml:"telefono"`
	FechaNacimiento  time.Time `json:"fechaNacimiento" yaml:"fechaNacimiento" jsonschema:"required"`
	Direccion        string    `json:"direccion" yaml:"direccion" jsonschema:"required,minLength=10"`
	Instrumento      string    `json:"instrumento" yaml:"instrumento" jsonschema:"required,minLength=2"`
	FechaInscripcion time.Time `json:"fechaInscripcion" yaml:"fechaInscripcion"`
}

// Draft is the user-editable part of a student, everything except id and enrollment date
type Draft struct {
	Nombre          string    `json:"nombre" validate:"min=2"`
	Apellido        string    `json:"apellido" validate:"min=2"`
	Cedula          string    `json:"cedula" validate:"min=5"`
	Telefono        string    `json:"telefono,omitempty"`
	FechaNacimiento time.Time `json:"fechaNacimiento" validate:"required"`
	Direccion       string    `json:"direccion" validate:"min=10"`
	Instrumento     string    `json:"instrumento" validate:"min=2"`
}

// fieldMessages are the user-facing messages of failed draft fields, keyed by json name
var fieldMessages = map[string]string{
	"nombre":          "El nombre debe tener al menos 2 caracteres.",
	"apellido":        "El apellido debe tener al menos 2 caracteres.",
	"cedula":          "La cédula es requerida.",
	"fechaNacimiento": "La fecha de nacimiento es requerida.",
	"direccion":       "La dirección debe tener al menos 10 caracteres.",
	"instrumento":     "El instrumento es requerido.",
}

const invalidBirthDate = "Fecha de nacimiento inválida."

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report fields by json name, the same names the form uses
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationErrors maps form field name to a user-facing message
type ValidationErrors map[string]string

// Error implements error interface
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for _, f := range []string{"nombre", "apellido", "cedula", "telefono", "fechaNacimiento", "direccion", "instrumento"} {
		if msg, ok := v[f]; ok {
			fields = append(fields, f+": "+msg)
		}
	}
	return "invalid student: " + strings.Join(fields, "; ")
}

// Normalize trims all text fields and sets the phone sentinel if telefono is empty
func (d Draft) Normalize() Draft {
	d.Nombre = strings.TrimSpace(d.Nombre)
	d.Apellido = strings.TrimSpace(d.Apellido)
	d.Cedula = strings.TrimSpace(d.Cedula)
	d.Telefono = strings.TrimSpace(d.Telefono)
	d.Direccion = strings.TrimSpace(d.Direccion)
	d.Instrumento = strings.TrimSpace(d.Instrumento)
	if d.Telefono == "" {
		d.Telefono = NoPhone
	}
	if !d.FechaNacimiento.IsZero() {
		d.FechaNacimiento = d.FechaNacimiento.UTC()
	}
	return d
}

// Validate checks minimal lengths of trimmed fields and birth date, returns ValidationErrors or nil.
// now is used as the upper bound for the birth date.
func (d Draft) Validate(now time.Time) error {
	errs := ValidationErrors{}
	if err := validate.Struct(d.Normalize()); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("failed to validate student: %w", err)
		}
		for _, fe := range fieldErrs {
			errs[fe.Field()] = fieldMessages[fe.Field()]
		}
	}

	if _, ok := errs["fechaNacimiento"]; !ok {
		switch {
		case d.FechaNacimiento.After(now):
			errs["fechaNacimiento"] = "La fecha de nacimiento no puede ser futura."
		case d.FechaNacimiento.Before(minBirthDate):
			errs["fechaNacimiento"] = "La fecha de nacimiento debe ser posterior a 1950."
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// UnmarshalJSON accepts fechaNacimiento as a plain date, as the form sends it, or as RFC3339 timestamp.
// A malformed date is reported as ValidationErrors.
func (d *Draft) UnmarshalJSON(data []byte) error {
	type plain Draft
	aux := struct {
		*plain
		FechaNacimiento string `json:"fechaNacimiento"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	bd, err := ParseBirthDate(aux.FechaNacimiento)
	if err != nil {
		return ValidationErrors{"fechaNacimiento": invalidBirthDate}
	}
	d.FechaNacimiento = bd
	return nil
}

// ParseBirthDate parses a birth date in BirthDateLayout or RFC3339, empty string gives zero time
func ParseBirthDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(BirthDateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid birth date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseDraft makes a Draft from submitted form values. A malformed birth date
// is reported as a validation error for the fechaNacimiento field.
func ParseDraft(values url.Values) (Draft, error) {
	d := Draft{
		Nombre:      values.Get("nombre"),
		Apellido:    values.Get("apellido"),
		Cedula:      values.Get("cedula"),
		Telefono:    values.Get("telefono"),
		Direccion:   values.Get("direccion"),
		Instrumento: values.Get("instrumento"),
	}
	bd, err := ParseBirthDate(values.Get("fechaNacimiento"))
	if err != nil {
		return d, ValidationErrors{"fechaNacimiento": invalidBirthDate}
	}
	d.FechaNacimiento = bd
	return d, nil
}

// Draft returns editable fields of the student
func (s Student) Draft() Draft {
	return Draft{
		Nombre:          s.Nombre,
		Apellido:        s.Apellido,
		Cedula:          s.Cedula,
		Telefono:        s.Telefono,
		FechaNacimiento: s.FechaNacimiento,
		Direccion:       s.Direccion,
		Instrumento:     s.Instrumento,
	}
}

// Apply replaces all editable fields, id and enrollment date are kept
func (s Student) Apply(d Draft) Student {
	s.Nombre = d.Nombre
	s.Apellido = d.Apellido
	s.Cedula = d.Cedula
	s.Telefono = d.Telefono
	s.FechaNacimiento = d.FechaNacimiento
	s.Direccion = d.Direccion
	s.Instrumento = d.Instrumento
	return s
}

// FullName returns "nombre apellido"
func (s Student) FullName() string {
	return s.Nombre + " " + s.Apellido
}

// Age returns full years between birth date and now, 0 for unknown birth date
func (s Student) Age(now time.Time) int {
	if s.FechaNacimiento.IsZero() {
		return 0
	}
	birth := s.FechaNacimiento.UTC()
	now = now.UTC()
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

// String implements fmt.Stringer, used in logs
func (s Student) String() string {
	return fmt.Sprintf("%s (%s, %s)", s.FullName(), s.ID, s.Cedula)
}

// Filter returns students matching the search term, preserving order.
// Names and instrument are matched case-insensitively, cedula and telefono as is.
func Filter(students []Student, term string) []Student {
	res := make([]Student, 0, len(students))
	if term == "" {
		return append(res, students...)
	}
	lower := strings.ToLower(term)
	for _, s := range students {
		if strings.Contains(strings.ToLower(s.Nombre), lower) ||
			strings.Contains(strings.ToLower(s.Apellido), lower) ||
			strings.Contains(s.Cedula, term) ||
			strings.Contains(s.Telefono, term) ||
			strings.Contains(strings.ToLower(s.Instrumento), lower) {
			res = append(res, s)
		}
	}
	return res
}
