package services

import "errors"

// Calculation failures are lookup-driven; the arithmetic itself cannot fail.
// A missing rate is never defaulted to zero tax: a configuration gap must be
// visible to the caller, not silently understate a tax obligation.
var (
	// ErrNoApplicableTaxRate means no rate row matches the
	// framework/jurisdiction/category combination on the calculation date.
	ErrNoApplicableTaxRate = errors.New("no applicable tax rate for the given framework, jurisdiction and category")

	// ErrInvalidFrameworkConfiguration means the framework declares zero
	// components, leaving nothing to compute against.
	ErrInvalidFrameworkConfiguration = errors.New("tax framework has no components configured")
)
