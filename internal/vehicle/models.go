package vehicle

import (
	"strings"

	"backend-motorota/internal/validation"
)

type FuelType string

const (
	FuelGasoline FuelType = "gasoline"
	FuelEthanol  FuelType = "ethanol"
	FuelFlex     FuelType = "flex"
)

// Profile is the single vehicle configured by an owner.
type Profile struct {
	Model        string   `json:"model" validate:"required"`
	FuelType     FuelType `json:"fuel_type" validate:"required,oneof=gasoline ethanol flex"`
	AutonomyKm   float64  `json:"autonomy_km" validate:"gte=0"`
	TankCapacity *float64 `json:"tank_capacity,omitempty" validate:"omitempty,gte=0"`
}

func (p Profile) Validate() error {
	normalized := p
	normalized.Model = strings.TrimSpace(p.Model)
	return validation.Struct(normalized)
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	dup := *p
	if p.TankCapacity != nil {
		tank := *p.TankCapacity
		dup.TankCapacity = &tank
	}
	return &dup
}
