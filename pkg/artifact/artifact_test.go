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
package artifact_test

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/zkfuzz/zkfuzz/pkg/artifact"
)

func TestWriteThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "counterexample.json")

	ce := artifact.Counterexample{
		TargetPath:      "circuit.circom",
		MainTemplate:    "Main",
		SearchMode:      "ga",
		ExecutionTimeMs: 1234,
		Flag: artifact.Flag{
			Type: "under-constrained/non-deterministic",
			ExpectedOutput: &artifact.ExpectedOutput{
				Name: "out", Value: "3",
			},
		},
		TargetOutput: "7",
		Assignment:   map[string]string{"in": "5"},
		Auxiliary: artifact.Auxiliary{
			Config: map[string]any{"seed": float64(42)},
			Log:    artifact.Log{Generation: 12, RandomSeed: 42},
		},
		RunID: artifact.RunIDString(uuid.New()),
	}

	require.NoError(t, artifact.Write(path, ce))

	got, err := artifact.Load(path)
	require.NoError(t, err)
	require.Equal(t, ce.TargetPath, got.TargetPath)
	require.Equal(t, ce.Flag.Type, got.Flag.Type)
	require.Equal(t, ce.Assignment, got.Assignment)
	require.Equal(t, ce.Auxiliary.Log, got.Auxiliary.Log)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := artifact.Load("/nonexistent/path/counterexample.json")
	require.Error(t, err)
}
