package assistant

import (
	"errors"
	"fmt"
)

// ErrNoIngredients is returned when a recipe yields no ingredients.
var ErrNoIngredients = errors.New("no ingredients found")

// ErrEmptyText is returned when there is no recipe text to work with.
var ErrEmptyText = errors.New("recipe text is empty")

// ExtractionError reports a failed recipe extraction.
type ExtractionError struct {
	Err      error
	Response string // Raw model reply, truncated; empty if no reply arrived
}

func (e *ExtractionError) Error() string {
	if e.Response != "" {
		return fmt.Sprintf("extraction failed: %v (response: %s)", e.Err, e.Response)
	}
	return fmt.Sprintf("extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ScalingError reports a failed or inconsistent scaling step.
type ScalingError struct {
	Err error
}

func (e *ScalingError) Error() string { return fmt.Sprintf("scaling failed: %v", e.Err) }

func (e *ScalingError) Unwrap() error { return e.Err }

// ShoppingListError reports a failed or invalid shopping list.
type ShoppingListError struct {
	Err      error
	Response string
}

func (e *ShoppingListError) Error() string {
	if e.Response != "" {
		return fmt.Sprintf("shopping list failed: %v (response: %s)", e.Err, e.Response)
	}
	return fmt.Sprintf("shopping list failed: %v", e.Err)
}

func (e *ShoppingListError) Unwrap() error { return e.Err }
