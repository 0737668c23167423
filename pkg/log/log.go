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
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 Display configuration
const (
	fileIndent   = 4  // spaces to indent file entries
	nameWidth    = 35 // Base width for filename
	outcomeWidth = 12 // Width for outcome text
)

// 🎯 Outcome is the console classification of one workflow
type Outcome string

const (
	OutcomeGenerated  Outcome = "generated"
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
	OutcomeRolledBack Outcome = "rolled back"
	OutcomeFatal      Outcome = "unrecoverable"
)

// 🎯 FileOperation represents one file's workflow for logging
type FileOperation struct {
	Path      string  // Source path relative to the project root
	Outcome   Outcome // What happened
	Detail    string  // Reason, error kind or commit id
	Artifacts int     // Number of artifacts written
	Conflict  string  // Conflict strategy applied, if any
}

// 📦 BatchOperation represents a batch run for logging
type BatchOperation struct {
	Inputs     []string // Inputs as given on the command line
	Candidates int      // Number of files that survived filtering
	DocRoot    string   // Documentation root relative to the project
	AutoCommit bool     // Whether generated files are committed
}

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog       zerolog.Logger
	console    io.Writer
	mu         sync.Mutex
	currentOp  *BatchOperation
	operations []FileOperation
}

// 🏭 New creates a new logger writing user-facing lines to console and records to zlog
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatFileOperation formats a file operation for display
func (l *Logger) formatFileOperation(op FileOperation) string {
	var symbol rune
	var symbolColor color.Attribute
	switch op.Outcome {
	case OutcomeGenerated:
		symbol = '✓'
		symbolColor = color.FgGreen
	case OutcomeUnchanged:
		symbol = '•'
		symbolColor = color.FgCyan
	case OutcomeSkipped:
		symbol = '-'
		symbolColor = color.FgYellow
	case OutcomeRolledBack:
		symbol = '⟲'
		symbolColor = color.FgBlue
	default:
		symbol = '✗'
		symbolColor = color.FgRed
	}

	detail := op.Detail
	if op.Conflict != "" {
		if detail != "" {
			detail += " "
		}
		detail += "(conflict: " + op.Conflict + ")"
	}

	line := fmt.Sprintf("%s%s %s %s %s",
		strings.Repeat(" ", fileIndent),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", nameWidth, op.Path),
		color.New(symbolColor).Sprint(fmt.Sprintf("%-*s", outcomeWidth, string(op.Outcome))),
		detail)
	return strings.TrimRight(line, " ")
}

// 📝 LogFileOperation logs a file operation
func (l *Logger) LogFileOperation(ctx context.Context, op FileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.operations = append(l.operations, op)

	fmt.Fprintln(l.console, l.formatFileOperation(op))

	evt := l.zlog.Info()
	if op.Outcome == OutcomeFailed || op.Outcome == OutcomeRolledBack || op.Outcome == OutcomeFatal {
		evt = l.zlog.Warn()
	}
	evt.
		Str("file", op.Path).
		Str("outcome", string(op.Outcome)).
		Str("detail", op.Detail).
		Int("artifacts", op.Artifacts).
		Str("conflict", op.Conflict).
		Msg("file workflow")
}

// 📝 StartBatch starts a new batch operation
func (l *Logger) StartBatch(ctx context.Context, op BatchOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentOp = &op
	l.operations = nil

	fmt.Fprintf(l.console, "[documenting %s]\n",
		color.New(color.FgCyan).Sprint(strings.Join(op.Inputs, " ")))

	commit := "no commit"
	if op.AutoCommit {
		commit = "auto commit"
	}
	fmt.Fprintf(l.console, "%s %s %s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprintf("%d files", op.Candidates),
		color.New(color.Faint).Sprint("•"),
		color.New(color.FgYellow).Sprintf("%s (%s)", op.DocRoot, commit))

	l.zlog.Info().
		Strs("inputs", op.Inputs).
		Int("candidates", op.Candidates).
		Str("doc_root", op.DocRoot).
		Bool("auto_commit", op.AutoCommit).
		Msg("starting batch")
}

// 📝 EndBatch ends the current batch operation
func (l *Logger) EndBatch(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentOp == nil {
		return
	}

	l.zlog.Info().
		Int("candidates", l.currentOp.Candidates).
		Int("files", len(l.operations)).
		Msg("batch complete")

	l.currentOp = nil
	l.operations = nil
}

// 📝 Progress logs a progress line
func (l *Logger) Progress(current, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, color.New(color.Faint).Sprint(FormatProgress(current, total)))
	l.zlog.Debug().Int("processed", current).Int("total", total).Msg("progress")
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	docrcText := color.New(color.Bold, color.FgCyan).Sprint("docrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", docrcText, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Plain writes msg to the console without decoration, for command output such as diffs
func (l *Logger) Plain(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console, msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

// 📝 Successf logs a formatted success message
func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
