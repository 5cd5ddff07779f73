package thing

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateDevice(t *testing.T) {
	tests := []struct {
		name    string
		device  *Device
		wantErr error
	}{
		{
			name:    "nil device",
			device:  nil,
			wantErr: ErrInvalidDevice,
		},
		{
			name:   "valid device",
			device: testDevice(),
		},
		{
			name: "empty id",
			device: &Device{
				ID:        "",
				Title:     "Plug",
				AdapterID: "virtual",
			},
			wantErr: ErrInvalidID,
		},
		{
			name: "empty title",
			device: &Device{
				ID:        "plug-1",
				Title:     "  ",
				AdapterID: "virtual",
			},
			wantErr: ErrInvalidTitle,
		},
		{
			name: "missing adapter id",
			device: &Device{
				ID:    "plug-1",
				Title: "Plug",
			},
			wantErr: ErrInvalidDevice,
		},
		{
			name: "unknown status",
			device: &Device{
				ID:        "plug-1",
				Title:     "Plug",
				AdapterID: "virtual",
				Status:    Status("limbo"),
			},
			wantErr: ErrInvalidStatus,
		},
		{
			name: "property key mismatch",
			device: &Device{
				ID:        "plug-1",
				Title:     "Plug",
				AdapterID: "virtual",
				Properties: map[string]*Property{
					"on": {Name: "off", Type: PropertyTypeBoolean},
				},
			},
			wantErr: ErrInvalidDevice,
		},
		{
			name: "property with bad type",
			device: &Device{
				ID:        "plug-1",
				Title:     "Plug",
				AdapterID: "virtual",
				Properties: map[string]*Property{
					"on": {Name: "on", Type: PropertyType("blob")},
				},
			},
			wantErr: ErrInvalidPropertyType,
		},
		{
			name: "property value disagrees with type",
			device: &Device{
				ID:        "plug-1",
				Title:     "Plug",
				AdapterID: "virtual",
				Properties: map[string]*Property{
					"on": {Name: "on", Type: PropertyTypeBoolean, Value: "yes"},
				},
			},
			wantErr: ErrInvalidPropertyValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDevice(tt.device)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDevice() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDevice() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{name: "simple", id: "plug-7"},
		{name: "namespaced", id: "virtual-plug-7"},
		{name: "uuid style", id: "f47ac10b-58cc-4372-a567-0e02b2c3d479"},
		{name: "colon namespace", id: "mqtt:plug-7"},
		{name: "empty", id: "", wantErr: true},
		{name: "leading dash", id: "-plug", wantErr: true},
		{name: "spaces", id: "plug 7", wantErr: true},
		{name: "too long", id: strings.Repeat("a", maxIDLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("Living Room Plug"); err != nil {
		t.Errorf("ValidateTitle() error = %v, want nil", err)
	}

	if err := ValidateTitle(""); !errors.Is(err, ErrInvalidTitle) {
		t.Errorf("ValidateTitle(empty) error = %v, want ErrInvalidTitle", err)
	}

	long := strings.Repeat("x", maxTitleLength+1)
	if err := ValidateTitle(long); !errors.Is(err, ErrInvalidTitle) {
		t.Errorf("ValidateTitle(long) error = %v, want ErrInvalidTitle", err)
	}
}

func TestValidateValue(t *testing.T) {
	tests := []struct {
		name     string
		propType PropertyType
		value    any
		wantErr  bool
	}{
		{name: "boolean true", propType: PropertyTypeBoolean, value: true},
		{name: "boolean from string", propType: PropertyTypeBoolean, value: "true", wantErr: true},
		{name: "integer int", propType: PropertyTypeInteger, value: 42},
		{name: "integer whole float", propType: PropertyTypeInteger, value: 42.0},
		{name: "integer fractional float", propType: PropertyTypeInteger, value: 42.5, wantErr: true},
		{name: "integer string", propType: PropertyTypeInteger, value: "42", wantErr: true},
		{name: "number float", propType: PropertyTypeNumber, value: 21.5},
		{name: "number int", propType: PropertyTypeNumber, value: 21},
		{name: "number bool", propType: PropertyTypeNumber, value: false, wantErr: true},
		{name: "string", propType: PropertyTypeString, value: "heat"},
		{name: "string from number", propType: PropertyTypeString, value: 1.0, wantErr: true},
		{name: "nil value", propType: PropertyTypeBoolean, value: nil, wantErr: true},
		{name: "unknown type", propType: PropertyType("blob"), value: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateValue(tt.propType, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateValue(%q, %v) error = %v, wantErr %v", tt.propType, tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == id2 {
		t.Error("GenerateID() returned duplicate IDs")
	}

	if err := ValidateID(id1); err != nil {
		t.Errorf("generated ID failed validation: %v", err)
	}
}
