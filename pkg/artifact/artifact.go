// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package artifact implements the counterexample JSON artefact of spec
// §6, grounded on original_source/src/main.rs's
// ce.to_json_with_meta(...)/json!({...}) construction (the
// "0_target_path".."8_auxiliary_result" key block around line
// 284-420) and original_source/src/mutator/utils.rs's CounterExample
// struct it serialises.
package artifact

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
)

// Flag is the "flag" key of the artefact: the violation class and, for
// non-deterministic violations, the output signal whose two witnesses
// disagreed.
type Flag struct {
	Type           string          `json:"type"`
	ExpectedOutput *ExpectedOutput `json:"expected_output,omitempty"`
}

// ExpectedOutput names the signal and value the baseline replay
// produced, for comparison against the mutant's divergent output.
type ExpectedOutput struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Log is the auxiliary per-run bookkeeping spec §6 nests under
// "auxiliary.log".
type Log struct {
	Generation int    `json:"generation"`
	RandomSeed uint64 `json:"random_seed"`
}

// Auxiliary carries the resolved mutation/search configuration plus
// the run log, per spec §6's "auxiliary": {"config": {...}, "log":
// {...}}.
type Auxiliary struct {
	Config any `json:"config"`
	Log    Log `json:"log"`
}

// Counterexample is the full artefact document of spec §6.
type Counterexample struct {
	TargetPath      string            `json:"target_path"`
	MainTemplate    string            `json:"main_template"`
	SearchMode      string            `json:"search_mode"`
	ExecutionTimeMs int64             `json:"execution_time_ms"`
	Flag            Flag              `json:"flag"`
	TargetOutput    string            `json:"target_output,omitempty"`
	Assignment      map[string]string `json:"assignment"`
	Auxiliary       Auxiliary         `json:"auxiliary"`
	RunID           string            `json:"run_id,omitempty"`
}

// Write renders ce as pretty-printed JSON (matching
// serde_json::to_string_pretty's convention the prototype uses for
// saved artefacts) and writes it to path.
func Write(path string, ce Counterexample) error {
	data, err := json.MarshalIndent(ce, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Load reads and decodes a counterexample artefact previously written
// by Write.
func Load(path string) (Counterexample, error) {
	var ce Counterexample

	data, err := os.ReadFile(path)
	if err != nil {
		return ce, err
	}

	if err := json.Unmarshal(data, &ce); err != nil {
		return ce, err
	}

	return ce, nil
}

// RunIDString renders id the way Counterexample.RunID expects it.
func RunIDString(id uuid.UUID) string {
	return id.String()
}
