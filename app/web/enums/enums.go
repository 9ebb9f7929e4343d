// Package enums provides type-safe enumeration types for the web interface.
//
// The enum types are defined as unexported integer types in this file and the
// go:generate directives invoke github.com/go-pkgz/enum to create the exported
// types in *_enum.go files. For each enum the generator creates an exported struct
// type with String, Parse*, MarshalText/UnmarshalText and Scan/Value methods plus
// exported constants for each value.
//
// Usage:
//
//	mode := enums.SortModeName
//	parsed, err := enums.ParseSortMode("enrolled")
//
// To regenerate the enum types after modifications:
//
//	go generate ./app/web/enums
package enums

//go:generate go run github.com/go-pkgz/enum@latest -type theme -lower
//go:generate go run github.com/go-pkgz/enum@latest -type sortMode -lower
//go:generate go run github.com/go-pkgz/enum@latest -type noticeKind -lower

// theme represents UI themes.
// Use the exported Theme type and its constants in actual code.
type theme int

const (
	themeLight theme = iota
	themeDark
)

// sortMode represents roster table ordering.
// default keeps the store order, name sorts by apellido and nombre,
// enrolled puts the most recent enrollment first.
type sortMode int

const (
	sortModeDefault sortMode = iota
	sortModeName
	sortModeEnrolled
)

// noticeKind represents the style of a user-visible notification
type noticeKind int

const (
	noticeKindSuccess noticeKind = iota
	noticeKindError
	noticeKindDestructive
)
