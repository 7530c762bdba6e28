package gallery

import (
	"errors"
	"fmt"
	"strings"

	"github.com/slok/zimg/internal/model"
)

// BatchPolicy is how a batch operation reacts to a failed item.
type BatchPolicy string

const (
	// PolicyAbortOnFirstFailure stops the batch on the first failed item.
	PolicyAbortOnFirstFailure BatchPolicy = "abort-on-first-failure"
	// PolicyContinueOnFailure processes every item regardless of failures.
	PolicyContinueOnFailure BatchPolicy = "continue-on-failure"
)

// BatchFailure is a failed batch item.
type BatchFailure struct {
	ID  string
	Err error
}

// BatchResult is the outcome of a batch operation over the selection.
type BatchResult struct {
	Policy    BatchPolicy
	Succeeded []string
	Failed    []BatchFailure
	// Skipped are the selected IDs that were not on the current page.
	Skipped []string
	// Aborted are the IDs not attempted because a previous item failed.
	Aborted []string
	// Saved are the local files written by a download batch.
	Saved []model.SavedArtifact
}

// Total returns the number of items the batch was asked to process.
func (b BatchResult) Total() int {
	return len(b.Succeeded) + len(b.Failed) + len(b.Skipped) + len(b.Aborted)
}

// Err folds the batch failures in a single error, nil if nothing failed.
func (b BatchResult) Err() error {
	if len(b.Failed) == 0 {
		return nil
	}

	errs := make([]error, 0, len(b.Failed))
	for _, f := range b.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", f.ID, f.Err))
	}

	return fmt.Errorf("%d of %d images failed (%s): %w", len(b.Failed), b.Total(), b.Policy, errors.Join(errs...))
}

// NotOnPageErr returns an error when every requested image was skipped because none
// of them is on the page, nil otherwise.
func (b BatchResult) NotOnPageErr(page int) error {
	if len(b.Skipped) == 0 || len(b.Skipped) != b.Total() {
		return nil
	}

	return fmt.Errorf("images %s are not on history page %d: %w", strings.Join(b.Skipped, ", "), page, model.ErrNotFound)
}
