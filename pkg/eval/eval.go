// Copyright 2026 © The RetailQA Authors
// SPDX-License-Identifier: Apache-2.0

// Package eval scores free-text model answers against known ground truth.
// The current scorer is numeric: it pulls the first number out of the
// answer and reports the absolute error against the expected value.
package eval

import (
	"regexp"
	"strconv"

	qaerrors "github.com/jllopis/retailqa/pkg/errors"
)

// Status classifies an evaluation outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
)

// Result is the outcome of comparing a model answer with ground truth.
type Result struct {
	Status        Status  `json:"status"`
	LLMValue      float64 `json:"llm_value"`
	GroundTruth   float64 `json:"ground_truth"`
	AbsoluteError float64 `json:"absolute_error"`
}

var numberPattern = regexp.MustCompile(`\d+\.?\d*`)

// ExtractNumber returns the first number found in the answer text.
// Thousands separators are not handled: "1,234.56" extracts as 1.
func ExtractNumber(answer string) (float64, error) {
	match := numberPattern.FindString(answer)
	if match == "" {
		return 0, qaerrors.New(qaerrors.CodeEvaluationMiss, "no numeric value found in answer", nil).
			WithContext("answer", answer)
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, qaerrors.New(qaerrors.CodeEvaluationMiss, "extracted value is not a number", err).
			WithContext("match", match)
	}
	return value, nil
}

// EvaluateNumeric compares the first number in the answer against the
// ground truth. A missing number yields a fail result, never an error:
// an unevaluable answer is an expected outcome, not a crash.
func EvaluateNumeric(answer string, groundTruth float64) Result {
	value, err := ExtractNumber(answer)
	if err != nil {
		return Result{
			Status:      StatusFail,
			GroundTruth: groundTruth,
		}
	}

	diff := value - groundTruth
	if diff < 0 {
		diff = -diff
	}
	return Result{
		Status:        StatusSuccess,
		LLMValue:      value,
		GroundTruth:   groundTruth,
		AbsoluteError: diff,
	}
}
