package domain

import (
	"fmt"
	"strings"
)

// CategoryUser is the fixed category for user-activity events. Device events
// carry the device type (turbine, compressor, ...) as their category.
const CategoryUser = "user"

// Event is a single telemetry or user-activity report. Metrics is an open
// map with no fixed schema: producers attach arbitrary numeric fields and
// each is merged into the member snapshot individually.
type Event struct {
	Site      string
	Category  string
	ID        string
	Timestamp int64 // unix seconds; 0 means "use receipt time"
	UserID    string
	Metrics   map[string]float64
}

// Validate checks the identity fields. Called before any store write so a
// malformed event leaves no partial state.
func (e *Event) Validate() error {
	if e.Site == "" {
		return fmt.Errorf("site is required: %w", ErrValidation)
	}
	if e.Category == "" {
		return fmt.Errorf("category is required: %w", ErrValidation)
	}
	if e.ID == "" {
		return fmt.Errorf("id is required: %w", ErrValidation)
	}
	if strings.ContainsRune(e.Site, '|') || strings.ContainsRune(e.Category, '|') || strings.ContainsRune(e.ID, '|') {
		return fmt.Errorf("identity fields must not contain '|': %w", ErrValidation)
	}
	return nil
}

// MemberKey derives the composite member identifier. The key is stable and
// unique across domains because the category is part of it.
func MemberKey(site, category, id string) string {
	return site + "|" + category + "|" + id
}
