package main

import (
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/df07/go-gravlens/pkg/core"
)

func TestGrayLevel(t *testing.T) {
	tests := []struct {
		name     string
		mag      float64
		maxMag   float64
		expected uint8
	}{
		{"zero magnification", 0, 10, 0},
		{"max magnification", 10, 10, 255},
		{"negative max magnification", -10, 10, 255},
		{"empty field", 0, 0, 0},
		{"above max clamps", 20, 10, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := grayLevel(tt.mag, tt.maxMag)
			if got != tt.expected {
				t.Errorf("grayLevel(%v, %v) = %d, want %d", tt.mag, tt.maxMag, got, tt.expected)
			}
		})
	}
}

func TestGrayLevelMonotonic(t *testing.T) {
	prev := grayLevel(0, 100)
	for mag := 1.0; mag <= 100; mag *= 2 {
		cur := grayLevel(mag, 100)
		if cur < prev {
			t.Errorf("grayLevel(%v, 100) = %d decreased below %d", mag, cur, prev)
		}
		prev = cur
	}
}

func TestSaveMagnificationMap(t *testing.T) {
	records := make([]core.PixelLensingRecord, 4)
	records[0].Magnification = 0
	records[1].Magnification = 1
	records[2].Magnification = -5
	records[3].Magnification = 50
	field := core.NewLensingField(uuid.New(), 2, 2, records, nil)

	path := filepath.Join(t.TempDir(), "sub", "mag.png")
	if err := saveMagnificationMap(field, path); err != nil {
		t.Fatalf("saveMagnificationMap: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 2 || bounds.Dy() != 2 {
		t.Errorf("Expected 2x2 image, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	brightness := func(x, y int) float64 {
		r, _, _, _ := img.At(x, y).RGBA()
		return float64(r)
	}
	if !(brightness(1, 1) > brightness(0, 1) && brightness(0, 1) > brightness(1, 0)) {
		t.Errorf("Expected brightness to grow with |magnification|: got %v, %v, %v",
			brightness(1, 0), brightness(0, 1), brightness(1, 1))
	}
	if b := brightness(0, 0); b != 0 {
		t.Errorf("Expected zero magnification to render black, got %v", b)
	}
	if math.Abs(brightness(1, 1)-0xffff) > 0.5 {
		t.Errorf("Expected the peak magnification to render white, got %v", brightness(1, 1))
	}
}
