package main

import (
	"github.com/pthm-cable/pupil/config"
)

// ParamSpec defines a single tunable control parameter.
type ParamSpec struct {
	Name  string  // Human-readable name
	Path  string  // Config path for logging
	Min   float64 // Lower bound
	Max   float64 // Upper bound
	field func(*config.ControlConfig) *float64
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "x_acceleration", Path: "control.x_acceleration", Min: 5, Max: 120,
				field: func(c *config.ControlConfig) *float64 { return &c.XAcceleration }},
			{Name: "max_x_speed", Path: "control.max_x_speed", Min: 60, Max: 600,
				field: func(c *config.ControlConfig) *float64 { return &c.MaxXSpeed }},
			{Name: "decay", Path: "control.decay", Min: 0.5, Max: 0.99,
				field: func(c *config.ControlConfig) *float64 { return &c.Decay }},
			{Name: "scripted_jump", Path: "control.scripted_jump", Min: 0, Max: 0.8,
				field: func(c *config.ControlConfig) *float64 { return &c.ScriptedJump }},
			{Name: "sense_jump_below", Path: "control.sense_jump_below", Min: 0.05, Max: 0.95,
				field: func(c *config.ControlConfig) *float64 { return &c.SenseJumpBelow }},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	for i, spec := range pv.Specs {
		*spec.field(&cfg.Control) = clamped[i]
	}
}

// ExtractFromConfig reads current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = *spec.field(&cfg.Control)
	}
	return v
}
