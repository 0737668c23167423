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
	"regexp"
	"sort"
)

// ReplacementRule defines a single text replacement operation
type ReplacementRule struct {
	// FromText is the text to replace
	FromText string

	// ToText is the replacement text
	ToText string
}

// ReplacementResult contains the results of a text replacement operation
type ReplacementResult struct {
	// WasModified indicates if any replacements were made
	WasModified bool

	// ReplacementCount is the number of replacements made
	ReplacementCount int

	// OriginalContent is the content before replacements
	OriginalContent []byte

	// ModifiedContent is the content after replacements
	ModifiedContent []byte

	// Unresolved lists placeholders left in the output, without braces
	Unresolved []string
}

// TextReplacer defines the interface for text replacement operations
type TextReplacer interface {
	// ReplaceText applies a set of replacement rules to the content
	ReplaceText(ctx context.Context, content io.Reader, rules []ReplacementRule) (*ReplacementResult, error)

	// ValidateRules checks that all rules are valid
	ValidateRules(rules []ReplacementRule) error
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Placeholder returns the {{name}} token for a variable.
func Placeholder(name string) string {
	return "{{" + name + "}}"
}

// RulesFromVariables builds one rule per variable, sorted by name.
// Placeholders tolerate inner spaces, so both {{name}} and {{ name }} are covered.
func RulesFromVariables(vars map[string]string) []ReplacementRule {
	names := make([]string, 0, len(vars))
	for k := range vars {
		names = append(names, k)
	}
	sort.Strings(names)

	rules := make([]ReplacementRule, 0, len(names)*2)
	for _, k := range names {
		rules = append(rules,
			ReplacementRule{FromText: Placeholder(k), ToText: vars[k]},
			ReplacementRule{FromText: "{{ " + k + " }}", ToText: vars[k]},
		)
	}
	return rules
}

// Placeholders lists the distinct variable names referenced in content, in order of first use.
func Placeholders(content string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
