package database

import (
	"errors"
	"time"
)

var (
	// ErrMappingExists is returned when an output identifier is recorded
	// twice in the same scope.
	ErrMappingExists = errors.New("output mapping already recorded")

	// ErrMappingNotFound is returned when no mapping exists for an
	// identifier in the requested scope.
	ErrMappingNotFound = errors.New("output mapping not found")
)

// Mapping associates a generated output identifier with the filename the
// client sees on download.
type Mapping struct {
	Scope        string    `json:"scope"`
	OutputID     string    `json:"outputId"`
	Path         string    `json:"-"`
	OriginalName string    `json:"originalName"`
	Kind         string    `json:"kind,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Conversion is one row of the conversion history.
type Conversion struct {
	ID           int64     `json:"id"`
	Kind         string    `json:"kind"`
	InputName    string    `json:"inputName"`
	OutputID     string    `json:"outputId,omitempty"`
	OutputFormat string    `json:"outputFormat,omitempty"`
	Stages       int       `json:"stages"`
	Status       string    `json:"status"`
	DurationMS   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ConversionStats summarises the conversion history.
type ConversionStats struct {
	Total    int                       `json:"total"`
	Failed   int                       `json:"failed"`
	ByKind   map[string]int            `json:"byKind"`
	ByStatus map[string]map[string]int `json:"byStatus"`
	Mappings int                       `json:"mappings"`
}
