// Package converter orchestrates audio and image conversions.
//
// A conversion runs Validator, Command Builder, Executor and Output Mapping
// Registry in that order. Each request owns an artifacts.Set; the set is
// released in a deferred call so the upload and any intermediate are
// removed on every exit path, including panics, while the output survives
// only when it was recorded in the registry.
package converter
