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

// Package config decodes the mutation configuration document described
// in spec §6 ("--path_to_mutation_setting"), an all-fields-optional
// JSON document ported field-for-field from
// original_source/src/mutator/mutation_config.rs's MutationConfig, so
// that existing mutation configuration files from that prototype still
// load sensibly here. Every field is optional on the wire; Load
// fills any field absent from the document with Default()'s value,
// mirroring load_config_from_json's "missing file -> defaults, logged
// at info" fallback.
package config

import (
	"encoding/json"
	"math/big"
	"os"

	"github.com/zkfuzz/zkfuzz/pkg/log"
)

// Range is one weighted sampling interval [Lo, Hi) used by the input
// generator (spec §4.7 "a finite set of ranges, each with a
// probability weight").
type Range struct {
	Lo   *big.Int `json:"lo"`
	Hi   *big.Int `json:"hi"`
	Prob float64  `json:"prob"`
}

// Mutation is the decoded mutation/search configuration, field-for-field
// matching original_source's MutationConfig (renamed to Go
// conventions; JSON tags preserve the original snake_case keys so
// existing configuration files parse unchanged).
type Mutation struct {
	Seed                     uint64  `json:"seed"`
	ProgramPopulationSize    int     `json:"program_population_size"`
	InputPopulationSize      int     `json:"input_population_size"`
	MaxGenerations           int     `json:"max_generations"`
	InputInitializationMethod string `json:"input_initialization_method"`
	TraceMutationMethod      string  `json:"trace_mutation_method"`
	FitnessFunction          string  `json:"fitness_function"`
	MutationRate             float64 `json:"mutation_rate"`
	CrossoverRate            float64 `json:"crossover_rate"`
	OperatorMutationRate     float64 `json:"operator_mutation_rate"`
	RuntimeMutationRate      float64 `json:"runtime_mutation_rate"`
	NumEliminatedIndividuals int     `json:"num_eliminated_individuals"`
	MaxNumMutationPoints     int     `json:"max_num_mutation_points"`
	InputUpdateInterval      int     `json:"input_update_interval"`
	InputGenerationMaxIteration         int     `json:"input_generation_max_iteration"`
	InputGenerationCrossoverRate        float64 `json:"input_generation_crossover_rate"`
	InputGenerationMutationRate         float64 `json:"input_generation_mutation_rate"`
	InputGenerationSinglepointMutationRate float64 `json:"input_generation_singlepoint_mutation_rate"`
	RandomValueRanges        []Range `json:"random_value_ranges"`
	BinaryModeProb           float64 `json:"binary_mode_prob"`
	BinaryModeSearchLevel    int     `json:"binary_mode_search_level"`
	BinaryModeWarmupRound    float64 `json:"binary_mode_warmup_round"`
	ZeroDivAttemptProb       float64 `json:"zero_div_attempt_prob"`
	StatementDeletionProb    float64 `json:"statement_deletion_prob"`
	AddRandomConstProb       float64 `json:"add_random_const_prob"`
	SaveFitnessScores        bool    `json:"save_fitness_scores"`
}

// Default returns spec-mandated, prototype-preserving defaults (spec
// §4.6/§4.7/§4.8's "default mix", pinned exactly to
// MutationConfig::default()) for the field's default modulus, the
// BN254 scalar field prime used throughout this engine's test fixtures
// and --prime=bn254 (spec §6).
func Default() Mutation {
	p := bn254Prime()

	return Mutation{
		Seed:                      0,
		ProgramPopulationSize:     30,
		InputPopulationSize:       30,
		MaxGenerations:            500,
		InputInitializationMethod: "random",
		TraceMutationMethod:       "constant_operator",
		FitnessFunction:           "error",
		MutationRate:              0.3,
		CrossoverRate:             0.5,
		OperatorMutationRate:      0.1,
		RuntimeMutationRate:       0.3,
		NumEliminatedIndividuals:  5,
		MaxNumMutationPoints:      10,
		InputUpdateInterval:       1,
		InputGenerationMaxIteration:            30,
		InputGenerationCrossoverRate:           0.66,
		InputGenerationMutationRate:            0.5,
		InputGenerationSinglepointMutationRate: 0.5,
		RandomValueRanges: []Range{
			{Lo: big.NewInt(0), Hi: big.NewInt(2), Prob: 0.15},
			{Lo: big.NewInt(2), Hi: big.NewInt(11), Prob: 0.34},
			{Lo: big.NewInt(11), Hi: p, Prob: 0.01},
			{Lo: p, Hi: new(big.Int).Add(p, big.NewInt(100)), Prob: 0.5},
		},
		BinaryModeProb:        0.0,
		BinaryModeSearchLevel: 1,
		BinaryModeWarmupRound: 0.0,
		ZeroDivAttemptProb:    0.2,
		StatementDeletionProb: 0.2,
		AddRandomConstProb:    0.2,
		SaveFitnessScores:     false,
	}
}

func bn254Prime() *big.Int {
	p, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	return p
}

// Load reads a mutation configuration document from path, merging it
// over Default() field-by-field present-keys-only (spec §6
// "--path_to_mutation_setting"). A missing or unreadable file falls
// back to Default() entirely, logged at info, matching
// load_config_from_json's behaviour.
func Load(path string) Mutation {
	cfg := Default()

	if path == "" {
		return cfg
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Infof("mutation config %q unreadable, using defaults: %v", path, err)
		return cfg
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		log.Warnf("mutation config %q malformed, using defaults: %v", path, err)
		return Default()
	}

	return cfg
}
