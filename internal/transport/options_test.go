package transport

import (
	"testing"

	"go.bug.st/serial"
)

func TestPortOptions_Normalise_Defaults(t *testing.T) {
	got, err := PortOptions{}.Normalise()
	if err != nil {
		t.Fatalf("Normalise() error = %v", err)
	}
	if got.BaudRate != DefaultBaudRate {
		t.Errorf("BaudRate = %d, want %d", got.BaudRate, DefaultBaudRate)
	}
	if got.DataBits != 8 {
		t.Errorf("DataBits = %d, want 8", got.DataBits)
	}
	if got.StopBits != 1 {
		t.Errorf("StopBits = %d, want 1", got.StopBits)
	}
	if got.Parity != "N" {
		t.Errorf("Parity = %q, want %q", got.Parity, "N")
	}
}

func TestPortOptions_Normalise(t *testing.T) {
	tests := []struct {
		name       string
		opts       PortOptions
		wantParity string
		wantErr    bool
	}{
		{"explicit values", PortOptions{BaudRate: 9600, DataBits: 7, StopBits: 2, Parity: "E"}, "E", false},
		{"long parity name", PortOptions{Parity: " odd "}, "O", false},
		{"none parity", PortOptions{Parity: "none"}, "N", false},
		{"bad data bits", PortOptions{DataBits: 9}, "", true},
		{"bad stop bits", PortOptions{StopBits: 3}, "", true},
		{"bad parity", PortOptions{Parity: "M"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.opts.Normalise()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalise() error = %v", err)
			}
			if got.Parity != tt.wantParity {
				t.Errorf("Parity = %q, want %q", got.Parity, tt.wantParity)
			}
		})
	}
}

func TestPortOptions_SerialMode(t *testing.T) {
	mode, err := PortOptions{BaudRate: 57600, StopBits: 2, Parity: "E"}.SerialMode()
	if err != nil {
		t.Fatalf("SerialMode() error = %v", err)
	}
	if mode.BaudRate != 57600 {
		t.Errorf("BaudRate = %d, want 57600", mode.BaudRate)
	}
	if mode.StopBits != serial.TwoStopBits {
		t.Errorf("StopBits = %v, want TwoStopBits", mode.StopBits)
	}
	if mode.Parity != serial.EvenParity {
		t.Errorf("Parity = %v, want EvenParity", mode.Parity)
	}

	if _, err := (PortOptions{DataBits: 4}).SerialMode(); err == nil {
		t.Error("expected error for invalid data bits")
	}
}

func TestOpenSerial_InvalidOptions(t *testing.T) {
	if _, err := OpenSerial("/dev/null", PortOptions{Parity: "X"}); err == nil {
		t.Error("expected error for invalid parity")
	}
}
