// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/docrc/pkg/failure"
)

func TestValidatePreconditions(t *testing.T) {
	tests := []struct {
		name        string
		initialized bool
		locked      bool
		prepare     func(t *testing.T, root, docRoot string)
		file        string
		wantKind    failure.Kind
	}{
		{
			name:        "valid",
			initialized: true,
			file:        "a.go",
		},
		{
			name:        "not_initialized",
			initialized: false,
			file:        "a.go",
			wantKind:    failure.NotInitialized,
		},
		{
			name:        "doc_root_missing",
			initialized: true,
			prepare: func(t *testing.T, root, docRoot string) {
				require.NoError(t, os.RemoveAll(docRoot))
			},
			file:     "a.go",
			wantKind: failure.NotInitialized,
		},
		{
			name:        "doc_root_read_only",
			initialized: true,
			prepare: func(t *testing.T, root, docRoot string) {
				if os.Geteuid() == 0 {
					t.Skip("permission bits are not enforced for root")
				}
				require.NoError(t, os.Chmod(docRoot, 0555))
				t.Cleanup(func() { _ = os.Chmod(docRoot, 0755) })
			},
			file:     "a.go",
			wantKind: failure.PermissionDenied,
		},
		{
			name:        "index_locked",
			initialized: true,
			locked:      true,
			file:        "a.go",
			wantKind:    failure.Busy,
		},
		{
			name:        "missing_file",
			initialized: true,
			file:        "nope.go",
			wantKind:    failure.PathNotFound,
		},
		{
			name:        "directory",
			initialized: true,
			prepare: func(t *testing.T, root, docRoot string) {
				require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))
			},
			file:     "pkg",
			wantKind: failure.PathNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, resolver, root := mockDocs(t)
			if tt.prepare != nil {
				tt.prepare(t, root, docs.DocRoot())
			}

			b := &MockBackend{}
			b.On("Initialized").Return(tt.initialized)
			b.On("IndexLocked").Return(tt.locked)

			err := NewValidator(b, docs, resolver).ValidatePreconditions(testCtx(), tt.file)
			if tt.wantKind == failure.KindUnknown {
				assert.NoError(t, err, "validation should pass")
				return
			}
			require.Error(t, err, "validation should fail")
			assert.Equal(t, tt.wantKind, failure.KindOf(err))
			assert.NotContains(t, err.Error(), root, "messages should not leak the absolute root")
		})
	}
}

func TestValidateBatch(t *testing.T) {
	docs, resolver, root := mockDocs(t)
	for _, f := range []string{"b.go", "c.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("package x\n"), 0644))
	}

	b := &MockBackend{}
	b.On("Initialized").Return(true)
	b.On("IndexLocked").Return(false)

	files := []string{"c.go", "missing.go", "a.go", "b.go"}
	res, err := NewValidator(b, docs, resolver).ValidateBatch(testCtx(), files)
	require.NoError(t, err, "batch validation should succeed")

	assert.Equal(t, []string{"c.go", "a.go", "b.go"}, res.Valid, "valid paths keep input order")
	require.Contains(t, res.Invalid, "missing.go")
	assert.Equal(t, failure.PathNotFound, res.Invalid["missing.go"].Kind)
	b.AssertNumberOfCalls(t, "Initialized", 1)
}

func TestValidateBatchSharedFailure(t *testing.T) {
	docs, resolver, _ := mockDocs(t)

	b := &MockBackend{}
	b.On("Initialized").Return(false)

	res, err := NewValidator(b, docs, resolver).ValidateBatch(testCtx(), []string{"a.go"})
	require.Error(t, err, "shared failure should abort the batch")
	assert.Nil(t, res)
	assert.True(t, failure.IsKind(err, failure.NotInitialized))
}
