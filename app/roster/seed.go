package roster

import (
	"fmt"
	"os"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

//go:generate go run ./internal/schema ../../seed.schema.json

// SeedFile is the yaml layout of a roster seed file
type SeedFile struct {
	Students []Student `yaml:"students" json:"students" jsonschema:"required"`
}

// DefaultSeed returns the fixed sample roster stored on first use of an empty store
func DefaultSeed() []Student {
	return []Student{
		{
			ID:               "1",
			Nombre:           "Carlos",
			Apellido:         "Pérez",
			Cedula:           "V-25.123.456",
			Telefono:         "0414-1234567",
			FechaNacimiento:  time.Date(2005, time.March, 15, 0, 0, 0, 0, time.UTC),
			Direccion:        "Av. Principal, Casa #10, Santa Elena",
			Instrumento:      "Trompeta",
			FechaInscripcion: time.Date(2023, time.January, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:               "2",
			Nombre:           "Ana",
			Apellido:         "Gomez",
			Cedula:           "V-26.987.654",
			Telefono:         "0412-7654321",
			FechaNacimiento:  time.Date(2006, time.July, 22, 0, 0, 0, 0, time.UTC),
			Direccion:        "Calle 2, Edificio Roraima, Apto 5B",
			Instrumento:      "Clarinete",
			FechaInscripcion: time.Date(2023, time.February, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:               "3",
			Nombre:           "Luis",
			Apellido:         "Rodriguez",
			Cedula:           "V-24.555.888",
			Telefono:         "0424-9876543",
			FechaNacimiento:  time.Date(2004, time.November, 2, 0, 0, 0, 0, time.UTC),
			Direccion:        "Urb. Tepuy, Vereda 3",
			Instrumento:      "Batería",
			FechaInscripcion: time.Date(2022, time.November, 30, 0, 0, 0, 0, time.UTC),
		},
	}
}

// LoadSeed reads a yaml seed file. Every student must pass Draft validation,
// empty telefono gets the sentinel and a missing enrollment date is set to now.
// Ids are left as is, stores assign them for empty ones.
func LoadSeed(path string) ([]Student, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}

	var sf SeedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	if len(sf.Students) == 0 {
		return nil, fmt.Errorf("seed file %s has no students", path)
	}

	now := time.Now().UTC()
	res := make([]Student, 0, len(sf.Students))
	for i, s := range sf.Students {
		draft := s.Draft().Normalize()
		if err := draft.Validate(now); err != nil {
			return nil, fmt.Errorf("seed student %d: %w", i+1, err)
		}
		st := s.Apply(draft)
		if st.FechaInscripcion.IsZero() {
			st.FechaInscripcion = now
		}
		st.FechaInscripcion = st.FechaInscripcion.UTC()
		res = append(res, st)
	}
	return res, nil
}

// Schema returns the json schema of a student record
func Schema() *jsonschema.Schema {
	r := jsonschema.Reflector{ExpandedStruct: true}
	schema := r.Reflect(&Student{})
	schema.Title = "Student"
	schema.Description = "Band roster student record"
	return schema
}

// SeedSchema returns the json schema of a yaml seed file, used by editors to validate seeds.
// id, telefono and fechaInscripcion are optional in seeds.
func SeedSchema() *jsonschema.Schema {
	r := jsonschema.Reflector{RequiredFromJSONSchemaTags: true}
	schema := r.Reflect(&SeedFile{})
	schema.Title = "Roster Seed File"
	schema.Description = "Initial students stored on first use of an empty roster"
	return schema
}
