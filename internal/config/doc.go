// Package config holds the tolerances and physical constants used by the
// fitting engine and loads them from an optional JSON file.
//
// Tolerances is the immutable bundle every fit receives. Config is the file
// form, in which every field is optional and unset fields fall back to the
// package defaults through the Get* accessors.
package config
