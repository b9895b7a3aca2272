// Package model maps detected memory to a runnable model identifier.
package model

import (
	"errors"
	"fmt"
)

// ErrInsufficientResources is returned when the machine has too little
// memory for even the smallest tier.
var ErrInsufficientResources = errors.New("insufficient resources")

// MinimumMemoryGB is the floor below which no local model is offered.
const MinimumMemoryGB = 8

// Tier pairs a memory floor with the model it unlocks.
type Tier struct {
	MinMemoryGB int
	Model       string
}

// Tiers is ordered highest floor first. Evaluation order matters: a
// machine qualifying for several tiers must get the best one.
var Tiers = []Tier{
	{MinMemoryGB: 32, Model: "qwen3-coder:30b"},
	{MinMemoryGB: 16, Model: "qwen2.5-coder:14b"},
	{MinMemoryGB: 8, Model: "qwen2.5-coder:7b"},
}

// Select resolves the model for the given memory. An explicit override
// wins unconditionally; otherwise the highest tier whose floor is at or
// below memoryGB is chosen. Below the floor of the smallest tier,
// ErrInsufficientResources is returned.
func Select(memoryGB int, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	for _, tier := range Tiers {
		if memoryGB >= tier.MinMemoryGB {
			return tier.Model, nil
		}
	}

	return "", fmt.Errorf("%w: %dGB RAM detected, at least %dGB required for local models",
		ErrInsufficientResources, memoryGB, MinimumMemoryGB)
}
