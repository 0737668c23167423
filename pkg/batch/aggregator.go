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

package batch

import (
	"sort"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/failure"
	"github.com/walteh/docrc/pkg/workflow"
)

// 🎯 Status is the bucket a file lands in
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// 📄 Outcome is the classified result of one file
type Outcome struct {
	Status     Status
	Kind       failure.Kind // set for failures
	Reason     string       // sanitized failure message or skip reason
	Conflicted bool         // documentation already existed
	Strategy   workflow.Strategy
	Unchanged  bool   // generated content matched what was on disk
	RolledBack bool   // the failure was rolled back
	Artifacts  int    // artifacts written
	Commit     string // short hash of the commit, if one was made
}

// OutcomeFromResult classifies a workflow result.
func OutcomeFromResult(res *workflow.Result) Outcome {
	out := Outcome{}
	if res.Conflict != nil {
		out.Conflicted = true
		out.Strategy = res.Conflict.Strategy
	}
	if exec := res.Execution; exec != nil {
		if exec.Success && !exec.Unchanged {
			out.Artifacts = len(exec.GeneratedFiles)
		}
		out.Unchanged = exec.Unchanged
		if exec.Commit != nil {
			out.Commit = exec.Commit.ShortHash
		}
	}

	switch {
	case res.Skipped:
		out.Status = StatusSkipped
		out.Reason = "documentation exists"
	case res.Err() != nil:
		out.Status = StatusFailed
		out.Kind = res.Err().Kind
		out.Reason = res.Err().Error()
		out.RolledBack = res.State.Stage == workflow.StageRolledBack
	default:
		out.Status = StatusSucceeded
	}
	return out
}

// OutcomeFromError classifies a file that failed before its workflow ran.
func OutcomeFromError(err *failure.Error) Outcome {
	return Outcome{Status: StatusFailed, Kind: err.Kind, Reason: err.Error()}
}

// ⚔️ ConflictRecord is one file that met existing documentation
type ConflictRecord struct {
	Path     string
	Strategy workflow.Strategy // empty when unresolved
}

// 📊 Summary is the aggregate of one batch run
type Summary struct {
	Candidates []string
	Results    map[string]Outcome
	Conflicts  []ConflictRecord

	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Remaining int // candidates never processed because the batch stopped

	SuccessRate float64 // succeeded / processed
	Errors      map[failure.Category]int
	Strategies  map[workflow.Strategy]int

	Aborted     bool
	AbortReason string
	Elapsed     time.Duration
}

// OK reports whether every candidate was processed without failure.
func (s *Summary) OK() bool {
	return !s.Aborted && s.Failed == 0
}

// Paths returns the processed paths with the given status, sorted.
func (s *Summary) Paths(status Status) []string {
	var out []string
	for p, o := range s.Results {
		if o.Status == status {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Unprocessed returns the candidates a stopped batch never reached, in order.
func (s *Summary) Unprocessed() []string {
	var out []string
	for _, c := range s.Candidates {
		if _, ok := s.Results[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// 🧮 Aggregator collects outcomes. It does no I/O.
type Aggregator struct {
	candidates []string
	results    map[string]Outcome
	order      []string
}

// 🏭 NewAggregator creates an aggregator for the given candidates
func NewAggregator(candidates []string) *Aggregator {
	return &Aggregator{
		candidates: candidates,
		results:    make(map[string]Outcome, len(candidates)),
	}
}

// ➕ Add records the outcome of one path. A path may be added only once.
func (a *Aggregator) Add(path string, outcome Outcome) error {
	if _, ok := a.results[path]; ok {
		return errors.Errorf("outcome for %s already recorded", path)
	}
	switch outcome.Status {
	case StatusSucceeded, StatusFailed, StatusSkipped:
	default:
		return errors.Errorf("unknown status %q for %s", outcome.Status, path)
	}
	a.results[path] = outcome
	a.order = append(a.order, path)
	return nil
}

// 📊 Summarize builds the summary of everything added so far
func (a *Aggregator) Summarize() *Summary {
	s := &Summary{
		Candidates: a.candidates,
		Results:    make(map[string]Outcome, len(a.results)),
		Errors:     map[failure.Category]int{},
		Strategies: map[workflow.Strategy]int{},
	}

	for _, p := range a.order {
		o := a.results[p]
		s.Results[p] = o
		s.Processed++

		switch o.Status {
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
			s.Errors[failure.CategoryOf(o.Kind)]++
		case StatusSkipped:
			s.Skipped++
		}

		if o.Conflicted {
			s.Conflicts = append(s.Conflicts, ConflictRecord{Path: p, Strategy: o.Strategy})
			if o.Strategy != workflow.StrategyNone {
				s.Strategies[o.Strategy]++
			}
		}
	}

	if s.Processed > 0 {
		s.SuccessRate = float64(s.Succeeded) / float64(s.Processed)
	}
	if n := len(a.candidates) - s.Processed; n > 0 {
		s.Remaining = n
	}
	sort.Slice(s.Conflicts, func(i, j int) bool { return s.Conflicts[i].Path < s.Conflicts[j].Path })
	return s
}
