package models

import "fmt"

// VehicleClass 计费车型
type VehicleClass string

const (
	ClassCar        VehicleClass = "Car"
	ClassTruck      VehicleClass = "Truck"
	ClassMotorcycle VehicleClass = "Motorcycle"
)

// VehicleClasses 所有计费车型
var VehicleClasses = []VehicleClass{ClassCar, ClassTruck, ClassMotorcycle}

// ParseVehicleClass 解析车型名称 (精确匹配)
func ParseVehicleClass(name string) (VehicleClass, error) {
	for _, c := range VehicleClasses {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown vehicle class %q", name)
}

func (c VehicleClass) String() string {
	return string(c)
}
