package release_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drops-platform/dropship/pkg/release"
)

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	err := &release.APIError{
		StatusCode: 422,
		Message:    "Validation Failed",
		Errors: []release.ValidationError{
			{Resource: "Release", Field: "tag_name", Code: "already_exists"},
			{Resource: "Release", Field: "name", Message: "name is too long"},
		},
	}

	assert.Equal(t,
		"release api: HTTP 422: Validation Failed; "+
			"Release.tag_name: already_exists; "+
			"Release.name: name is too long",
		err.Error(),
	)
}

func TestErrorPredicates(t *testing.T) {
	t.Parallel()

	notFound := &release.APIError{StatusCode: 404, Message: "Not Found"}
	conflict := &release.APIError{StatusCode: 409, Message: "Conflict"}
	tagExists := &release.APIError{
		StatusCode: 422,
		Message:    "Validation Failed",
		Errors: []release.ValidationError{
			{Resource: "Release", Field: "tag_name", Code: "already_exists"},
		},
	}
	otherValidation := &release.APIError{
		StatusCode: 422,
		Message:    "Validation Failed",
		Errors: []release.ValidationError{
			{Resource: "Release", Field: "name", Code: "too_long"},
		},
	}

	tcs := map[string]struct {
		err       error
		predicate func(error) bool
		want      bool
	}{
		"not found":            {err: notFound, predicate: release.IsNotFound, want: true},
		"not found wrapped":    {err: fmt.Errorf("gate: %w", notFound), predicate: release.IsNotFound, want: true},
		"not found mismatch":   {err: conflict, predicate: release.IsNotFound, want: false},
		"conflict":             {err: conflict, predicate: release.IsConflict, want: true},
		"unprocessable":        {err: tagExists, predicate: release.IsUnprocessable, want: true},
		"tag conflict":         {err: tagExists, predicate: release.IsTagConflict, want: true},
		"tag conflict wrapped": {err: fmt.Errorf("publish: %w", tagExists), predicate: release.IsTagConflict, want: true},
		"other validation":     {err: otherValidation, predicate: release.IsTagConflict, want: false},
		"plain error":          {err: errors.New("boom"), predicate: release.IsNotFound, want: false},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.predicate(tc.err))
		})
	}
}
