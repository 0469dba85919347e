package domain

import "errors"

var (
	// ErrNotFound indicates a referenced company or product does not exist. It is
	// fatal for the unit of work that referenced it, never for sibling units.
	ErrNotFound = errors.New("entity not found")

	// ErrInsufficientData indicates a model cannot be trained from the available
	// history. Callers recover by falling back to the moving average forecaster.
	ErrInsufficientData = errors.New("insufficient data for training")
)
