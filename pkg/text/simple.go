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

package text

import (
	"context"
	"io"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// SimpleTextReplacer implements TextReplacer using basic string replacement
type SimpleTextReplacer struct{}

// NewSimpleTextReplacer creates a new SimpleTextReplacer
func NewSimpleTextReplacer() *SimpleTextReplacer {
	return &SimpleTextReplacer{}
}

// ReplaceText applies every rule in a single pass, so replacement text is
// never itself rewritten by a later rule.
func (r *SimpleTextReplacer) ReplaceText(ctx context.Context, content io.Reader, rules []ReplacementRule) (*ReplacementResult, error) {
	originalContent, err := io.ReadAll(content)
	if err != nil {
		return nil, errors.Errorf("reading content: %w", err)
	}

	result := &ReplacementResult{
		OriginalContent: originalContent,
		ModifiedContent: originalContent,
	}

	original := string(originalContent)
	pairs := make([]string, 0, len(rules)*2)
	for _, rule := range rules {
		// Skip empty rules
		if rule.FromText == "" {
			continue
		}
		result.ReplacementCount += strings.Count(original, rule.FromText)
		pairs = append(pairs, rule.FromText, rule.ToText)
	}

	modified := original
	if len(pairs) > 0 {
		modified = strings.NewReplacer(pairs...).Replace(original)
	}

	result.WasModified = modified != original
	result.ModifiedContent = []byte(modified)
	result.Unresolved = Placeholders(modified)
	return result, nil
}

// ValidateRules implements TextReplacer.ValidateRules
func (r *SimpleTextReplacer) ValidateRules(rules []ReplacementRule) error {
	seen := map[string]int{}
	for i, rule := range rules {
		if rule.FromText == "" {
			return errors.Errorf("rule %d: from_text is required", i)
		}
		if prev, ok := seen[rule.FromText]; ok {
			return errors.Errorf("rule %d: duplicates rule %d (%q)", i, prev, rule.FromText)
		}
		seen[rule.FromText] = i
	}
	return nil
}

// 📝 Render substitutes vars into tmpl
func Render(ctx context.Context, tmpl string, vars map[string]string) (*ReplacementResult, error) {
	return NewSimpleTextReplacer().ReplaceText(ctx, strings.NewReader(tmpl), RulesFromVariables(vars))
}
