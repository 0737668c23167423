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

package generate

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
)

// 📝 Standard variables available to every template
const (
	VarFilePath    = "file_path"
	VarFileName    = "file_name"
	VarFileStem    = "file_stem"
	VarFileExt     = "file_ext"
	VarDocPath     = "doc_path"
	VarDate        = "date"
	VarTimestamp   = "timestamp"
	VarProjectName = "project_name"
	VarWorkflowID  = "workflow_id"
)

// StandardVariables lists the variables BuildVariables always sets.
var StandardVariables = []string{
	VarFilePath, VarFileName, VarFileStem, VarFileExt, VarDocPath,
	VarDate, VarTimestamp, VarProjectName, VarWorkflowID,
}

// 🎯 Generator produces the documentation artifacts of one unit. Generate
// either writes every artifact or reports failure with none written.
type Generator interface {
	// Load prepares templates once per batch
	Load(ctx context.Context) error
	// Generate renders the artifacts of source into destDir
	Generate(ctx context.Context, source, destDir string, vars map[string]string) (*Result, error)
}

// 📄 Artifact describes one written (or unchanged) file
type Artifact struct {
	Name      string // logical name, e.g. "index"
	Path      string // absolute path
	Checksum  string // blake3 of the content on disk after generation
	Unchanged bool   // content was identical and the file was not rewritten
}

// 📦 Result is the outcome of one Generate call
type Result struct {
	Artifacts map[string]Artifact
}

// Files maps artifact names to their absolute paths.
func (r *Result) Files() map[string]string {
	files := make(map[string]string, len(r.Artifacts))
	for name, a := range r.Artifacts {
		files[name] = a.Path
	}
	return files
}

// Unchanged reports whether no artifact was rewritten.
func (r *Result) Unchanged() bool {
	for _, a := range r.Artifacts {
		if !a.Unchanged {
			return false
		}
	}
	return len(r.Artifacts) > 0
}

// Checksum returns the hex blake3 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ⚙️ VariableInput is what BuildVariables derives template variables from
type VariableInput struct {
	Source      string // project-relative source path
	DocPath     string // project-relative unit directory
	ProjectName string
	WorkflowID  string
	Now         time.Time
	User        map[string]string // configured variables, never override standard ones
}

// 🏭 BuildVariables assembles the variable set for one file
func BuildVariables(in VariableInput) map[string]string {
	vars := make(map[string]string, len(in.User)+len(StandardVariables))
	for k, v := range in.User {
		vars[k] = v
	}

	source := filepath.ToSlash(in.Source)
	name := filepath.Base(in.Source)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		// dotfiles such as .env have no stem
		stem, ext = name, ""
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	vars[VarFilePath] = source
	vars[VarFileName] = name
	vars[VarFileStem] = stem
	vars[VarFileExt] = strings.TrimPrefix(ext, ".")
	vars[VarDocPath] = filepath.ToSlash(in.DocPath)
	vars[VarDate] = now.Format("2006-01-02")
	vars[VarTimestamp] = now.UTC().Format(time.RFC3339)
	vars[VarProjectName] = in.ProjectName
	vars[VarWorkflowID] = in.WorkflowID
	return vars
}
