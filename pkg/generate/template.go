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
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/docdir"
	"github.com/walteh/docrc/pkg/text"
)

// DefaultIndexTemplate renders a unit's index.md
const DefaultIndexTemplate = "# {{file_name}}\n" +
	"\n" +
	"> Source: `{{file_path}}`\n" +
	"\n" +
	"## Purpose\n" +
	"\n" +
	"_What {{file_stem}} is responsible for._\n" +
	"\n" +
	"## Key behavior\n" +
	"\n" +
	"## Related\n"

// DefaultHistoryHeader starts a unit's history.md
const DefaultHistoryHeader = `# History: {{file_path}}
`

// DefaultHistoryEntry is appended to history.md each time the index changes
const DefaultHistoryEntry = `
## {{date}}

- Documentation regenerated ({{workflow_id}})
`

// 📝 TemplateGenerator renders index.md and history.md from templates.
// Overrides are read from the template directory: index.md, history.md
// (the header) and history-entry.md.
type TemplateGenerator struct {
	dir      string
	docs     *docdir.Manager
	replacer text.TextReplacer

	mu     sync.Mutex
	loaded bool
	index  string
	header string
	entry  string
	known  []string
}

var _ Generator = (*TemplateGenerator)(nil)

// 🏭 NewTemplateGenerator creates a generator reading overrides from dir.
// userVars names the configured variables so Load can flag unknown placeholders.
func NewTemplateGenerator(dir string, docs *docdir.Manager, userVars []string) *TemplateGenerator {
	known := append(slices.Clone(StandardVariables), userVars...)
	return &TemplateGenerator{
		dir:      dir,
		docs:     docs,
		replacer: text.NewSimpleTextReplacer(),
		known:    known,
	}
}

// 📖 Load reads the templates. Later calls are no-ops.
func (g *TemplateGenerator) Load(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loaded {
		return nil
	}

	logger := zerolog.Ctx(ctx)

	var err error
	if g.index, err = g.read(ctx, "index.md", DefaultIndexTemplate); err != nil {
		return err
	}
	if g.header, err = g.read(ctx, "history.md", DefaultHistoryHeader); err != nil {
		return err
	}
	if g.entry, err = g.read(ctx, "history-entry.md", DefaultHistoryEntry); err != nil {
		return err
	}

	for _, tmpl := range []string{g.index, g.header, g.entry} {
		for _, name := range text.Placeholders(tmpl) {
			if !slices.Contains(g.known, name) {
				logger.Warn().Str("variable", name).Msg("template references an unknown variable")
			}
		}
	}

	g.loaded = true
	logger.Debug().Str("dir", g.dir).Msg("loaded templates")
	return nil
}

func (g *TemplateGenerator) read(ctx context.Context, name, fallback string) (string, error) {
	if g.dir == "" {
		return fallback, nil
	}
	data, err := os.ReadFile(filepath.Join(g.dir, name))
	if os.IsNotExist(err) {
		return fallback, nil
	}
	if err != nil {
		return "", errors.Errorf("reading template %s: %w", name, err)
	}
	zerolog.Ctx(ctx).Debug().Str("template", name).Msg("using template override")
	return string(data), nil
}

func (g *TemplateGenerator) render(ctx context.Context, tmpl string, vars map[string]string) ([]byte, error) {
	res, err := g.replacer.ReplaceText(ctx, strings.NewReader(tmpl), text.RulesFromVariables(vars))
	if err != nil {
		return nil, errors.Errorf("rendering template: %w", err)
	}
	return res.ModifiedContent, nil
}

// ✨ Generate renders both artifacts into destDir. When the rendered index
// matches what is on disk and history exists, nothing is written.
func (g *TemplateGenerator) Generate(ctx context.Context, source, destDir string, vars map[string]string) (*Result, error) {
	g.mu.Lock()
	loaded := g.loaded
	g.mu.Unlock()
	if !loaded {
		return nil, errors.Errorf("templates not loaded")
	}

	indexPath := filepath.Join(destDir, docdir.ArtifactFile(docdir.ArtifactIndex))
	historyPath := filepath.Join(destDir, docdir.ArtifactFile(docdir.ArtifactHistory))

	index, err := g.render(ctx, g.index, vars)
	if err != nil {
		return nil, err
	}
	indexSum := Checksum(index)

	oldIndex, indexExists, err := readIfExists(indexPath)
	if err != nil {
		return nil, err
	}
	oldHistory, historyExists, err := readIfExists(historyPath)
	if err != nil {
		return nil, err
	}

	if indexExists && historyExists && Checksum(oldIndex) == indexSum {
		zerolog.Ctx(ctx).Debug().Str("source", source).Msg("documentation unchanged")
		return &Result{Artifacts: map[string]Artifact{
			docdir.ArtifactIndex:   {Name: docdir.ArtifactIndex, Path: indexPath, Checksum: indexSum, Unchanged: true},
			docdir.ArtifactHistory: {Name: docdir.ArtifactHistory, Path: historyPath, Checksum: Checksum(oldHistory), Unchanged: true},
		}}, nil
	}

	entry, err := g.render(ctx, g.entry, vars)
	if err != nil {
		return nil, err
	}
	history := oldHistory
	if !historyExists {
		if history, err = g.render(ctx, g.header, vars); err != nil {
			return nil, err
		}
	}
	history = append(append([]byte{}, history...), entry...)

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, errors.Errorf("creating destination: %w", err)
	}
	if err := g.docs.WriteAll(ctx, map[string][]byte{
		indexPath:   index,
		historyPath: history,
	}); err != nil {
		return nil, errors.Errorf("writing artifacts for %s: %w", source, err)
	}

	return &Result{Artifacts: map[string]Artifact{
		docdir.ArtifactIndex:   {Name: docdir.ArtifactIndex, Path: indexPath, Checksum: indexSum},
		docdir.ArtifactHistory: {Name: docdir.ArtifactHistory, Path: historyPath, Checksum: Checksum(history)},
	}}, nil
}

func readIfExists(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Errorf("reading %s: %w", filepath.Base(path), err)
	}
	return data, true, nil
}
