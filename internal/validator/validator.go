package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
)

func ValidateString(value string, minLength int, maxLength int) error {
	n := len(value)
	if n < minLength || n > maxLength {
		return fmt.Errorf("must contain from %d to %d characters", minLength, maxLength)
	}

	return nil
}

func ValidateVehicleType(value db.VehicleType) error {
	switch value {
	case db.VehicleTypeMotorcycle, db.VehicleTypeCar, db.VehicleTypeScooter, db.VehicleTypeBicycle, db.VehicleTypeOnFoot:
		return nil
	}
	return fmt.Errorf("unknown vehicle type %q", value)
}

func ValidateSettingType(value db.SettingType) error {
	switch value {
	case db.SettingTypeString, db.SettingTypeInt, db.SettingTypeFloat, db.SettingTypeBool, db.SettingTypeJSON:
		return nil
	}
	return fmt.Errorf("unknown setting type %q", value)
}

// RegisterBindings adds the domain tags to gin's binding validator:
// `vehicle_type` and `setting_type`.
func RegisterBindings() error {
	engine, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator %T", binding.Validator.Engine())
	}

	if err := engine.RegisterValidation("vehicle_type", func(fl playground.FieldLevel) bool {
		return ValidateVehicleType(db.VehicleType(fl.Field().String())) == nil
	}); err != nil {
		return err
	}

	return engine.RegisterValidation("setting_type", func(fl playground.FieldLevel) bool {
		return ValidateSettingType(db.SettingType(fl.Field().String())) == nil
	})
}
