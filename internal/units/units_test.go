package units

import (
	"math"
	"testing"
)

func TestConvertVolume(t *testing.T) {
	tests := []struct {
		name     string
		volumeM3 float64
		units    string
		expected float64
	}{
		{"1 m3 to litres", 1.0, Litre, 1000.0},
		{"0.25 m3 to cm3", 0.25, CM3, 250000.0},
		{"1 m3 to ft3", 1.0, FT3, 35.3147},
		{"2 m3 to m3", 2.0, M3, 2.0},
		{"unknown units default to m3", 3.0, "unknown", 3.0},
		{"0 m3 to litres", 0.0, Litre, 0.0},
		{"small branch 0.0042 m3 to litres", 0.0042, Litre, 4.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertVolume(tt.volumeM3, tt.units)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("ConvertVolume(%f, %s) = %f, want %f", tt.volumeM3, tt.units, result, tt.expected)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid m3", M3, true},
		{"valid litre", Litre, true},
		{"valid cm3", CM3, true},
		{"valid ft3", FT3, true},
		{"invalid unit", "gallon", false},
		{"empty string", "", false},
		{"case sensitive", "M3", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	expected := "m3, l, cm3, ft3"
	result := GetValidUnitsString()
	if result != expected {
		t.Errorf("GetValidUnitsString() = %s, want %s", result, expected)
	}
}

func TestLabel(t *testing.T) {
	if got := Label(Litre); got != "L" {
		t.Errorf("Label(l) = %q, want L", got)
	}
	if got := Label("bogus"); got != "m³" {
		t.Errorf("Label(bogus) = %q, want m³", got)
	}
}
