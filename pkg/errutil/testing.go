// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Courier Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
)

// AssertErrorCode asserts that err carries the given oops error code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		t.Fatalf("expected an oops error carrying code %q, got %T: %v", code, err, err)
	}
	assert.Equal(t, code, oopsErr.Code())
}
