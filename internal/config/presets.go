package config

import (
	"sort"

	"github.com/san-kum/leadlag/internal/objective"
)

type Preset struct {
	Description string
	Plant       PlantConfig
	Spec        objective.Spec
}

// Presets maps plant name → scenario name → preset.
var Presets = map[string]map[string]Preset{
	"first_order": {
		"pm45": {
			Description: "1/(s+1), 45° phase margin",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 1}},
			Spec:        objective.Spec{TargetPM: 45},
		},
		"fast": {
			Description: "1/(s+1), 50° phase margin above 10 rad/s",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 1}},
			Spec:        objective.Spec{TargetPM: 50, MinBandwidth: objective.Float(10)},
		},
	},
	"type1": {
		"tracking": {
			Description: "1/(s²+s), 45° phase margin, 5% steady-state error",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 1, 0}},
			Spec:        objective.Spec{TargetPM: 45, MaxSteadyStateError: objective.Float(0.05)},
		},
		"servo": {
			Description: "1/(s²+s), 60° phase margin above 2 rad/s",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 1, 0}},
			Spec:        objective.Spec{TargetPM: 60, MinBandwidth: objective.Float(2)},
		},
	},
	"second_order": {
		"damped": {
			Description: "1/(s²+0.4s+1), 60° phase margin",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 0.4, 1}},
			Spec:        objective.Spec{TargetPM: 60},
		},
		"regulator": {
			Description: "1/(s²+0.4s+1), 45° phase margin, 2% steady-state error",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 0.4, 1}},
			Spec:        objective.Spec{TargetPM: 45, MaxSteadyStateError: objective.Float(0.02)},
		},
	},
	"third_order": {
		"classic": {
			Description: "1/(s(s+1)(s+2)), 45° phase margin",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 3, 2, 0}},
			Spec:        objective.Spec{TargetPM: 45},
		},
		"constrained": {
			Description: "1/(s(s+1)(s+2)), 40° phase margin above 1 rad/s, 10% error",
			Plant:       PlantConfig{Numerator: []float64{1}, Denominator: []float64{1, 3, 2, 0}},
			Spec: objective.Spec{
				TargetPM:            40,
				MinBandwidth:        objective.Float(1),
				MaxSteadyStateError: objective.Float(0.1),
			},
		},
	},
	"dc_motor": {
		"position": {
			Description: "armature-controlled motor position 0.01/(s(0.005s²+0.06s+0.1001))",
			Plant:       PlantConfig{Numerator: []float64{0.01}, Denominator: []float64{0.005, 0.06, 0.1001, 0}},
			Spec:        objective.Spec{TargetPM: 50, MinBandwidth: objective.Float(5)},
		},
		"speed": {
			Description: "armature-controlled motor speed 0.01/(0.005s²+0.06s+0.1001)",
			Plant:       PlantConfig{Numerator: []float64{0.01}, Denominator: []float64{0.005, 0.06, 0.1001}},
			Spec:        objective.Spec{TargetPM: 60, MaxSteadyStateError: objective.Float(0.01)},
		},
	},
}

// GetPreset returns the default configuration with the preset's plant and
// spec applied, or nil when it does not exist.
func GetPreset(plant, preset string) *Config {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	p, ok := plantPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Plant = PlantConfig{
		Name:        plant,
		Numerator:   append([]float64(nil), p.Plant.Numerator...),
		Denominator: append([]float64(nil), p.Plant.Denominator...),
	}
	cfg.Spec = objective.Spec{
		TargetPM:            p.Spec.TargetPM,
		MinBandwidth:        clonePtr(p.Spec.MinBandwidth),
		MaxSteadyStateError: clonePtr(p.Spec.MaxSteadyStateError),
	}
	return cfg
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return objective.Float(*v)
}

func ListPresets(plant string) []string {
	plantPresets, ok := Presets[plant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(plantPresets))
	for name := range plantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPlants() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
