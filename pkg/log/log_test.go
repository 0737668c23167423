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

package log

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(t *testing.T, logger *Logger)
		wantLogs []string
	}{
		{
			name: "log_generated_file",
			op: func(t *testing.T, logger *Logger) {
				logger.LogFileOperation(context.Background(), FileOperation{
					Path:      "src/models.py",
					Outcome:   OutcomeGenerated,
					Artifacts: 2,
				})
			},
			wantLogs: []string{
				"    ✓ src/models.py                       generated",
			},
		},
		{
			name: "log_skipped_conflict",
			op: func(t *testing.T, logger *Logger) {
				logger.LogFileOperation(context.Background(), FileOperation{
					Path:     "a.py",
					Outcome:  OutcomeSkipped,
					Detail:   "existing documentation",
					Conflict: "skip",
				})
			},
			wantLogs: []string{
				"    - a.py                                skipped      existing documentation (conflict: skip)",
			},
		},
		{
			name: "log_failed_file",
			op: func(t *testing.T, logger *Logger) {
				logger.LogFileOperation(context.Background(), FileOperation{
					Path:    "b.py",
					Outcome: OutcomeRolledBack,
					Detail:  "GenerationFailed",
				})
			},
			wantLogs: []string{
				"    ⟲ b.py                                rolled back  GenerationFailed",
			},
		},
		{
			name: "log_batch",
			op: func(t *testing.T, logger *Logger) {
				logger.StartBatch(context.Background(), BatchOperation{
					Inputs:     []string{"."},
					Candidates: 3,
					DocRoot:    ".docrc/docs",
					AutoCommit: true,
				})
				logger.EndBatch(context.Background())
			},
			wantLogs: []string{
				"[documenting .]",
				"◆ 3 files • .docrc/docs (auto commit)",
			},
		},
		{
			name: "log_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Info("info message")
				logger.Warning("warning message")
				logger.Error("error message")
				logger.Success("success message")
			},
			wantLogs: []string{
				"ℹ️  info message",
				"⚠️  warning message",
				"❌ error message",
				"✅ success message",
			},
		},
		{
			name: "log_formatted_messages",
			op: func(t *testing.T, logger *Logger) {
				logger.Infof("processed %d files", 3)
				logger.Warningf("skipped %s", "a.py")
			},
			wantLogs: []string{
				"ℹ️  processed 3 files",
				"⚠️  skipped a.py",
			},
		},
		{
			name: "log_progress",
			op: func(t *testing.T, logger *Logger) {
				logger.Progress(1, 4)
				logger.Progress(4, 4)
			},
			wantLogs: []string{
				"⏳ Progress: 1/4 (25%)",
				"✅ Progress: 4/4 (100%)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, zerolog.Nop())

			tt.op(t, logger)

			lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			require.Len(t, lines, len(tt.wantLogs), "line count should match")
			for i, want := range tt.wantLogs {
				assert.Equal(t, want, lines[i], "line %d should match", i)
			}
		})
	}
}

func TestLoggerContext(t *testing.T) {
	logger := New(&bytes.Buffer{}, zerolog.Nop())
	ctx := NewContext(context.Background(), logger)

	assert.Same(t, logger, FromContext(ctx), "logger should round trip through context")
	assert.Panics(t, func() {
		FromContext(context.Background())
	}, "missing logger should panic")
}

func TestLoggerWritesStructuredRecords(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	var console, records bytes.Buffer
	logger := New(&console, zerolog.New(&records))

	logger.LogFileOperation(context.Background(), FileOperation{
		Path:    "c.py",
		Outcome: OutcomeFailed,
		Detail:  "PermissionDenied",
	})

	assert.Contains(t, records.String(), `"level":"warn"`, "failures should be recorded as warnings")
	assert.Contains(t, records.String(), `"file":"c.py"`, "record should carry the file")
	assert.Contains(t, records.String(), `"outcome":"failed"`, "record should carry the outcome")
}

func TestFormatProgress(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    string
	}{
		{"empty_batch", 0, 0, "✅ Progress: 0/0 (0%)"},
		{"halfway", 2, 4, "⏳ Progress: 2/4 (50%)"},
		{"done", 3, 3, "✅ Progress: 3/3 (100%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatProgress(tt.current, tt.total))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "12ms", FormatDuration(12345*time.Microsecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m3s", FormatDuration(123400*time.Millisecond))
	assert.Equal(t, "75%", FormatRate(0.75))
}
