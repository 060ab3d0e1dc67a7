// Package units provides shared constants and conversion for volume units.
package units

// Unit constants
const (
	M3    = "m3"
	Litre = "l"
	CM3   = "cm3"
	FT3   = "ft3"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M3, Litre, CM3, FT3}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "m3, l, cm3, ft3"
}

// ConvertVolume converts a volume from cubic metres to the target units.
// Tree files carry coordinates and radii in metres, so computed volumes are m³.
func ConvertVolume(volumeM3 float64, targetUnits string) float64 {
	switch targetUnits {
	case Litre:
		return volumeM3 * 1000
	case CM3:
		return volumeM3 * 1e6
	case FT3:
		return volumeM3 * 35.3146667 // m³ to ft³
	case M3:
		return volumeM3
	default:
		return volumeM3 // default to m³ if unknown unit
	}
}

// Label returns the column suffix used for a unit in reports.
func Label(unit string) string {
	switch unit {
	case Litre:
		return "L"
	case CM3:
		return "cm³"
	case FT3:
		return "ft³"
	default:
		return "m³"
	}
}
