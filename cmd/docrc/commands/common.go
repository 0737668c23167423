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

package commands

import (
	"github.com/walteh/docrc/cmd/docrc/opts"
	"github.com/walteh/docrc/pkg/failure"
)

// requireInitialized fails commands that need an existing documentation repository
func requireInitialized(o *opts.RootOpts) error {
	if !o.Backend.Initialized() {
		return failure.New(failure.NotInitialized, "", "no documentation repository found, run 'docrc init' first")
	}
	return nil
}
