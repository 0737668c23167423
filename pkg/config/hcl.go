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

package config

import (
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct {
	// Environ overrides os.Environ for the `env` variable, used by tests
	Environ func() []string
}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL. Expressions may read environment
// variables through `env`, e.g. author_email = env.DOCRC_EMAIL.
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	environ := os.Environ
	if p.Environ != nil {
		environ = p.Environ
	}

	// Create evaluation context
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(environ()),
		},
	}

	// Define HCL schema
	type hclConfig struct {
		DocRoot               string `hcl:"doc_root,optional"`
		IgnoreFile            string `hcl:"ignore_file,optional"`
		DisableDefaultIgnores bool   `hcl:"disable_default_ignores,optional"`
		AutoCommit            bool   `hcl:"auto_commit,optional"`
		CommitMessage         string `hcl:"commit_message,optional"`
		ConflictStrategy      string `hcl:"conflict_strategy,optional"`
		ProgressInterval      int    `hcl:"progress_interval,optional"`
		Git                   *struct {
			Binary      string `hcl:"binary,optional"`
			AuthorName  string `hcl:"author_name,optional"`
			AuthorEmail string `hcl:"author_email,optional"`
			LockRetries int    `hcl:"lock_retries,optional"`
		} `hcl:"git,block"`
		Templates *struct {
			Dir       string            `hcl:"dir,optional"`
			Variables map[string]string `hcl:"variables,optional"`
		} `hcl:"templates,block"`
	}

	// Decode HCL
	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		DocRoot:               hclCfg.DocRoot,
		IgnoreFile:            hclCfg.IgnoreFile,
		DisableDefaultIgnores: hclCfg.DisableDefaultIgnores,
		AutoCommit:            hclCfg.AutoCommit,
		CommitMessage:         hclCfg.CommitMessage,
		ConflictStrategy:      hclCfg.ConflictStrategy,
		ProgressInterval:      hclCfg.ProgressInterval,
	}

	if hclCfg.Git != nil {
		cfg.Git = &GitArgs{
			Binary:      hclCfg.Git.Binary,
			AuthorName:  hclCfg.Git.AuthorName,
			AuthorEmail: hclCfg.Git.AuthorEmail,
			LockRetries: hclCfg.Git.LockRetries,
		}
	}

	if hclCfg.Templates != nil {
		cfg.Templates = &TemplateArgs{
			Dir:       hclCfg.Templates.Dir,
			Variables: hclCfg.Templates.Variables,
		}
	}

	return cfg, nil
}

// envObject exposes KEY=VALUE pairs as a cty object
func envObject(environ []string) cty.Value {
	vals := make(map[string]cty.Value, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vals[k] = cty.StringVal(v)
	}
	if len(vals) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vals)
}
