package exercise

import (
	"strings"
	"testing"
)

func legColumns(withIndex bool) []string {
	cols := []string{"timestamp"}
	for _, p := range []string{"right_leg", "left_leg"} {
		if withIndex {
			cols = append(cols, p+"_index")
		}
		for _, axis := range []string{"Accel_X", "Accel_Y", "Accel_Z", "Gyro_X", "Gyro_Y", "Gyro_Z"} {
			cols = append(cols, p+"_"+axis)
		}
	}
	return cols
}

func TestConfig_Width(t *testing.T) {
	plain := Config{Name: "legs", Sensors: []SensorID{RightLeg, LeftLeg}, Columns: legColumns(false)}
	indexed := Config{Name: "legs", Sensors: []SensorID{RightLeg, LeftLeg}, Columns: legColumns(true)}

	if got := plain.Width(RightLeg); got != 6 {
		t.Errorf("plain Width = %d, want 6", got)
	}
	if got := indexed.Width(RightLeg); got != 7 {
		t.Errorf("indexed Width = %d, want 7", got)
	}
	if got := plain.RowWidth(); got != 12 {
		t.Errorf("plain RowWidth = %d, want 12", got)
	}
	if got := indexed.RowWidth(); got != 14 {
		t.Errorf("indexed RowWidth = %d, want 14", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid plain",
			cfg:  Config{Name: "legs", Sensors: []SensorID{RightLeg, LeftLeg}, Columns: legColumns(false)},
		},
		{
			name: "valid indexed",
			cfg:  Config{Name: "legs", Sensors: []SensorID{RightLeg, LeftLeg}, Columns: legColumns(true)},
		},
		{
			name:    "empty name",
			cfg:     Config{Sensors: []SensorID{RightLeg, LeftLeg}, Columns: legColumns(false)},
			wantErr: "name must not be empty",
		},
		{
			name:    "no sensors",
			cfg:     Config{Name: "x", Columns: []string{"timestamp"}},
			wantErr: "no sensors",
		},
		{
			name:    "sensor out of range",
			cfg:     Config{Name: "x", Sensors: []SensorID{6}, Columns: []string{"timestamp"}},
			wantErr: "out of range",
		},
		{
			name:    "unsorted sensors",
			cfg:     Config{Name: "x", Sensors: []SensorID{LeftLeg, RightLeg}, Columns: legColumns(false)},
			wantErr: "strictly ascending",
		},
		{
			name:    "missing timestamp column",
			cfg:     Config{Name: "x", Sensors: []SensorID{RightLeg, LeftLeg}, Columns: legColumns(false)[1:]},
			wantErr: "first column",
		},
		{
			name:    "foreign column",
			cfg:     Config{Name: "x", Sensors: []SensorID{RightLeg}, Columns: legColumns(false)[:13]},
			wantErr: "does not belong",
		},
		{
			name:    "width mismatch",
			cfg:     Config{Name: "x", Sensors: []SensorID{RightLeg, LeftLeg}, Columns: legColumns(false)[:12]},
			wantErr: "12 columns, want 13",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestSensorID_Role(t *testing.T) {
	if RightHand.String() != "right_hand" || Ball.String() != "ball" {
		t.Errorf("unexpected role prefixes %q %q", RightHand, Ball)
	}
	if got := SensorID(9).String(); got != "sensor(9)" {
		t.Errorf("invalid id String() = %q", got)
	}
	if Ball.Role().DeviceName != "Sense Ball" {
		t.Errorf("Ball device name = %q", Ball.Role().DeviceName)
	}
	if len(Roles()) != MaxSensors {
		t.Errorf("Roles() = %d entries, want %d", len(Roles()), MaxSensors)
	}
}
