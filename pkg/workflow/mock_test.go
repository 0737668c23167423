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
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/walteh/docrc/pkg/generate"
	"github.com/walteh/docrc/pkg/vcs"
)

// 🔧 MockBackend is a mock implementation of the vcs.Backend interface
type MockBackend struct {
	mock.Mock
}

var _ vcs.Backend = (*MockBackend)(nil)

func (m *MockBackend) Init(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockBackend) Initialized() bool {
	return m.Called().Bool(0)
}

func (m *MockBackend) Add(ctx context.Context, paths []string, force bool) error {
	return m.Called(ctx, paths, force).Error(0)
}

func (m *MockBackend) Commit(ctx context.Context, message string) (*vcs.CommitInfo, error) {
	args := m.Called(ctx, message)
	info, _ := args.Get(0).(*vcs.CommitInfo)
	return info, args.Error(1)
}

func (m *MockBackend) Status(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Log(ctx context.Context, paths []string, limit int) ([]vcs.CommitInfo, error) {
	args := m.Called(ctx, paths, limit)
	infos, _ := args.Get(0).([]vcs.CommitInfo)
	return infos, args.Error(1)
}

func (m *MockBackend) Diff(ctx context.Context, paths []string, cached bool) (string, error) {
	args := m.Called(ctx, paths, cached)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Head(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) Tag(ctx context.Context, name, rev string) error {
	return m.Called(ctx, name, rev).Error(0)
}

func (m *MockBackend) TagDelete(ctx context.Context, name string) error {
	return m.Called(ctx, name).Error(0)
}

func (m *MockBackend) ResolveRef(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) ResetHard(ctx context.Context, rev string) error {
	return m.Called(ctx, rev).Error(0)
}

func (m *MockBackend) StashCreate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) StashApply(ctx context.Context, rev string) error {
	return m.Called(ctx, rev).Error(0)
}

func (m *MockBackend) Untracked(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	paths, _ := args.Get(0).([]string)
	return paths, args.Error(1)
}

func (m *MockBackend) Staged(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	paths, _ := args.Get(0).([]string)
	return paths, args.Error(1)
}

func (m *MockBackend) Unstage(ctx context.Context, paths []string) error {
	return m.Called(ctx, paths).Error(0)
}

func (m *MockBackend) IndexLocked() bool {
	return m.Called().Bool(0)
}

// 🔧 MockGenerator is a mock implementation of the generate.Generator interface
type MockGenerator struct {
	mock.Mock
}

var _ generate.Generator = (*MockGenerator)(nil)

func (m *MockGenerator) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockGenerator) Generate(ctx context.Context, source, destDir string, vars map[string]string) (*generate.Result, error) {
	args := m.Called(ctx, source, destDir, vars)
	res, _ := args.Get(0).(*generate.Result)
	return res, args.Error(1)
}
