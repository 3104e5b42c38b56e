package models

import (
	"errors"
	"strings"
)

// Module identifies one of the supported import targets
type Module string

const (
	ModuleInventory      Module = "inventory"
	ModuleEmployees      Module = "employees"
	ModuleMachines       Module = "machines"
	ModuleQualityControl Module = "quality-control"
	ModuleAttendance     Module = "attendance"
	ModuleProduction     Module = "production"
)

// ErrUnsupportedModule is returned for module selectors outside the supported set
var ErrUnsupportedModule = errors.New("unsupported module")

// Modules lists every supported module in display order
var Modules = []Module{
	ModuleInventory,
	ModuleEmployees,
	ModuleMachines,
	ModuleQualityControl,
	ModuleAttendance,
	ModuleProduction,
}

// ParseModule resolves a module selector, ignoring case and surrounding whitespace
func ParseModule(s string) (Module, error) {
	candidate := Module(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range Modules {
		if m == candidate {
			return m, nil
		}
	}
	return "", ErrUnsupportedModule
}

func (m Module) String() string {
	return string(m)
}
