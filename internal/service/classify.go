package service

import (
	"fmt"

	"github.com/langchou/parkmeter/internal/models"
)

// 原始车型到计费车型的映射 (区分大小写, 精确匹配)
var vehicleTypes = map[string]models.VehicleClass{
	"Sedan":  models.ClassCar,
	"SUV":    models.ClassCar,
	"Pickup": models.ClassCar,
	"Van":    models.ClassCar,

	"Truck":   models.ClassTruck,
	"Bus":     models.ClassTruck,
	"Trailer": models.ClassTruck,

	"Motorcycle": models.ClassMotorcycle,
	"Bicycle":    models.ClassMotorcycle,
}

// Classify 识别车型
func Classify(rawType string) (models.VehicleClass, error) {
	class, ok := vehicleTypes[rawType]
	if !ok {
		return "", newError(KindUnrecognizedVehicleType, fmt.Sprintf("vehicle type %q unrecognized", rawType), nil)
	}
	return class, nil
}
