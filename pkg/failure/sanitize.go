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

package failure

import (
	"path/filepath"
	"regexp"
	"strings"
)

// absPathPattern matches absolute paths that start a token inside free text
var absPathPattern = regexp.MustCompile(`(^|[\s'"(=])(?:[A-Za-z]:\\|/)[^\s'":)]+`)

// 🧹 Sanitize rewrites absolute paths in a backend message. Paths under root become
// root-relative, anything else is masked.
func Sanitize(msg, root string) string {
	if msg == "" {
		return msg
	}
	root = filepath.Clean(root)
	if root != "" && root != "." && root != string(filepath.Separator) {
		msg = strings.ReplaceAll(msg, root+string(filepath.Separator), "")
		msg = replaceRoot(msg, root)
	}
	return absPathPattern.ReplaceAllString(msg, "${1}<path>")
}

// replaceRoot turns each occurrence of root that ends a path token into "."
func replaceRoot(msg, root string) string {
	if !strings.Contains(msg, root) {
		return msg
	}
	var b strings.Builder
	for {
		i := strings.Index(msg, root)
		if i < 0 {
			b.WriteString(msg)
			return b.String()
		}
		end := i + len(root)
		b.WriteString(msg[:i])
		if end == len(msg) || !isNameByte(msg[end]) {
			b.WriteByte('.')
		} else {
			b.WriteString(root)
		}
		msg = msg[end:]
	}
}

// isNameByte reports bytes that continue a file name
func isNameByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return c == '_' || c == '.' || c == '-'
}

// SanitizeError returns a copy of err whose message has been passed through Sanitize.
// The chain is preserved for errors.Is / errors.As.
func SanitizeError(err error, root string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	clean := Sanitize(msg, root)
	if clean == msg {
		return err
	}
	return &sanitized{msg: clean, err: err}
}

type sanitized struct {
	msg string
	err error
}

func (s *sanitized) Error() string { return s.msg }
func (s *sanitized) Unwrap() error { return s.err }
