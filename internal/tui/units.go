package tui

import (
	"fmt"

	"burnpace/internal/config"
)

const kilojoulesPerKcal = 4.184

// Units converts energy values to the user's preferred unit. Values enter
// in kilocalories.
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// IsKilojoules returns true if energy is shown in kJ
func (u Units) IsKilojoules() bool {
	return u.cfg.EnergyUnit == "kJ"
}

// Convert returns kcal in the display unit
func (u Units) Convert(kcal float64) float64 {
	if u.IsKilojoules() {
		return kcal * kilojoulesPerKcal
	}
	return kcal
}

// ConvertAll converts a chart series in place and returns it
func (u Units) ConvertAll(kcal []float64) []float64 {
	if !u.IsKilojoules() {
		return kcal
	}
	for i := range kcal {
		kcal[i] *= kilojoulesPerKcal
	}
	return kcal
}

// EnergyLabel returns the short unit label ("kcal" or "kJ")
func (u Units) EnergyLabel() string {
	if u.IsKilojoules() {
		return "kJ"
	}
	return "kcal"
}

// FormatEnergy formats kcal with the unit label, rounded to whole units
func (u Units) FormatEnergy(kcal float64) string {
	return fmt.Sprintf("%.0f %s", u.Convert(kcal), u.EnergyLabel())
}

// FormatEnergyValue returns just the rounded number (no unit label)
func (u Units) FormatEnergyValue(kcal float64) string {
	return fmt.Sprintf("%.0f", u.Convert(kcal))
}

// FormatDelta formats a signed difference, e.g. "+42 kcal"
func (u Units) FormatDelta(kcal float64) string {
	v := u.Convert(kcal)
	if v >= 0.5 {
		return fmt.Sprintf("+%.0f %s", v, u.EnergyLabel())
	}
	if v <= -0.5 {
		return fmt.Sprintf("%.0f %s", v, u.EnergyLabel())
	}
	return "±0 " + u.EnergyLabel()
}
