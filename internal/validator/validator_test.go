package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	db "github.com/pharmago/dispatch/internal/db/sqlc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateString(t *testing.T) {
	assert.NoError(t, ValidateString("customer absent", 3, 255))
	assert.Error(t, ValidateString("no", 3, 255))
	assert.Error(t, ValidateString("abcdef", 1, 5))
}

func TestValidateVehicleType(t *testing.T) {
	assert.NoError(t, ValidateVehicleType(db.VehicleTypeScooter))
	assert.Error(t, ValidateVehicleType("helicopter"))
}

func TestRegisterBindings(t *testing.T) {
	require.NoError(t, RegisterBindings())

	type request struct {
		Vehicle db.VehicleType `binding:"required,vehicle_type"`
		Type    db.SettingType `binding:"required,setting_type"`
	}

	assert.NoError(t, binding.Validator.ValidateStruct(&request{Vehicle: db.VehicleTypeCar, Type: db.SettingTypeInt}))
	assert.Error(t, binding.Validator.ValidateStruct(&request{Vehicle: "boat", Type: db.SettingTypeInt}))
	assert.Error(t, binding.Validator.ValidateStruct(&request{Vehicle: db.VehicleTypeCar, Type: "blob"}))
}
