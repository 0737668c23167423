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

package workflow

import (
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/docrc/pkg/failure"
)

// 🚦 Stage is a step in one file's workflow. Stages only move forward;
// Failed can be entered from any non-terminal stage and RolledBack only from Failed.
type Stage int

const (
	StageCreated Stage = iota
	StageValidated
	StageBackedUp
	StageGenerating
	StageCommitting
	StageCleanup
	StageCompleted
	StageFailed
	StageRolledBack
)

var stageNames = [...]string{
	StageCreated:    "Created",
	StageValidated:  "Validated",
	StageBackedUp:   "BackedUp",
	StageGenerating: "Generating",
	StageCommitting: "Committing",
	StageCleanup:    "Cleanup",
	StageCompleted:  "Completed",
	StageFailed:     "Failed",
	StageRolledBack: "RolledBack",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "Unknown"
	}
	return stageNames[s]
}

// IsTerminal reports whether no further transition is possible, except
// Failed which may still become RolledBack.
func (s Stage) IsTerminal() bool {
	return s == StageCompleted || s == StageFailed || s == StageRolledBack
}

// 📋 State is one file's workflow. It lives for a single Run call.
type State struct {
	WorkflowID     string
	FilePath       string
	Stage          Stage
	GeneratedFiles map[string]string
	BackupTag      string
	Err            *failure.Error

	// Stages records every stage entered, in order
	Stages []Stage
}

func newState(id, file string) *State {
	return &State{
		WorkflowID: id,
		FilePath:   file,
		Stage:      StageCreated,
		Stages:     []Stage{StageCreated},
	}
}

// advance moves to a later non-failure stage
func (s *State) advance(to Stage) error {
	if s.Stage.IsTerminal() {
		return errors.Errorf("workflow %s is already %s", s.WorkflowID, s.Stage)
	}
	if to <= s.Stage || to == StageFailed || to == StageRolledBack {
		return errors.Errorf("invalid transition %s -> %s", s.Stage, to)
	}
	s.Stage = to
	s.Stages = append(s.Stages, to)
	return nil
}

// fail records err and enters Failed. The first error wins.
func (s *State) fail(err *failure.Error) {
	if s.Err == nil {
		if err.Stage == "" {
			err = err.WithStage(s.Stage.String())
		}
		s.Err = err
	}
	if s.Stage.IsTerminal() {
		return
	}
	s.Stage = StageFailed
	s.Stages = append(s.Stages, StageFailed)
}

// rolledBack marks a failed workflow as restored
func (s *State) rolledBack() error {
	if s.Stage != StageFailed {
		return errors.Errorf("invalid transition %s -> %s", s.Stage, StageRolledBack)
	}
	s.Stage = StageRolledBack
	s.Stages = append(s.Stages, StageRolledBack)
	return nil
}

// Failed reports whether the workflow ended in failure, rolled back or not.
func (s *State) Failed() bool {
	return s.Stage == StageFailed || s.Stage == StageRolledBack
}

// escalate replaces the recorded error, used when a rollback fails on top of an earlier failure
func (s *State) escalate(err *failure.Error) {
	s.Err = err
	if !s.Stage.IsTerminal() {
		s.Stage = StageFailed
		s.Stages = append(s.Stages, StageFailed)
	}
}
