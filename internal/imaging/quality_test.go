package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func uniformImage(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// checkerboard alternates black and white blocks, giving high contrast
// that survives the 200x200 resample.
func checkerboard(w, h, block int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if ((x/block)+(y/block))%2 == 0 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			}
		}
	}
	return img
}

func TestAssessQualityDecodeFailureIsNeutral(t *testing.T) {
	report := AssessQuality([]byte("not an image"))
	if report.QualityLabel != QualityUnknown {
		t.Fatalf("label = %q, want %q", report.QualityLabel, QualityUnknown)
	}
	for name, score := range map[string]float64{
		"resolution": report.ResolutionScore,
		"sharpness":  report.SharpnessScore,
		"lighting":   report.LightingScore,
		"overall":    report.OverallQuality,
	} {
		if score != neutralScore {
			t.Fatalf("%s score = %v, want neutral %v", name, score, neutralScore)
		}
	}
}

func TestAssessQualitySharpWellLitHighRes(t *testing.T) {
	data := encodePNG(t, checkerboard(1300, 1300, 100))
	report := AssessQuality(data)

	if report.ResolutionScore != 1.0 {
		t.Fatalf("resolution = %v, want 1.0", report.ResolutionScore)
	}
	if report.SharpnessScore != 1.0 {
		t.Fatalf("sharpness = %v, want 1.0", report.SharpnessScore)
	}
	if report.LightingScore != 1.0 {
		t.Fatalf("lighting = %v, want 1.0", report.LightingScore)
	}
	if report.QualityLabel != QualityExcellent {
		t.Fatalf("label = %q, want excellent", report.QualityLabel)
	}
}

func TestAssessQualityBlurryMidGray(t *testing.T) {
	// Uniform mid-gray: perfect lighting and resolution, zero sharpness.
	data := encodePNG(t, uniformImage(1300, 1300, 128))
	report := AssessQuality(data)

	if report.SharpnessScore != 0.15 {
		t.Fatalf("sharpness = %v, want 0.15", report.SharpnessScore)
	}
	want := 0.4*1.0 + 0.35*0.15 + 0.25*1.0
	if math.Abs(report.OverallQuality-want) > 1e-9 {
		t.Fatalf("overall = %v, want %v", report.OverallQuality, want)
	}
	if report.QualityLabel != QualityGood {
		t.Fatalf("label = %q, want good", report.QualityLabel)
	}
}

func TestAssessQualityUnderexposed(t *testing.T) {
	data := encodePNG(t, uniformImage(600, 600, 10))
	report := AssessQuality(data)

	// Mean 10 is 80 below the ideal band floor of 90.
	want := 1.0 - 80.0/85.0
	if math.Abs(report.LightingScore-want) > 0.05 {
		t.Fatalf("lighting = %v, want about %v", report.LightingScore, want)
	}
}

func TestResolutionScoreSteps(t *testing.T) {
	cases := []struct {
		w, h int
		want float64
	}{
		{1300, 1400, 1.0},
		{1200, 2000, 1.0},
		{800, 2000, 0.85},
		{500, 800, 0.7},
		{300, 600, 0.5},
		{200, 400, 0.3},
		{199, 400, 0.15},
		{2000, 100, 0.15},
	}
	for _, tc := range cases {
		if got := resolutionScore(tc.w, tc.h); got != tc.want {
			t.Fatalf("resolutionScore(%d, %d) = %v, want %v", tc.w, tc.h, got, tc.want)
		}
	}
}

func TestLightingScoreBand(t *testing.T) {
	cases := []struct {
		mean float64
		want float64
	}{
		{90, 1.0},
		{130, 1.0},
		{170, 1.0},
		{175, 1.0 - 5.0/85.0},
		{85, 1.0 - 5.0/85.0},
		{255, 0},
		{0, 0},
	}
	for _, tc := range cases {
		got := lightingScore(tc.mean)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("lightingScore(%v) = %v, want %v", tc.mean, got, tc.want)
		}
	}
}

func TestLabelThresholds(t *testing.T) {
	cases := []struct {
		overall float64
		want    string
	}{
		{0.85, QualityExcellent},
		{0.80, QualityExcellent},
		{0.79, QualityGood},
		{0.60, QualityGood},
		{0.59, QualityFair},
		{0.40, QualityFair},
		{0.39, QualityPoor},
	}
	for _, tc := range cases {
		if got := labelFor(tc.overall); got != tc.want {
			t.Fatalf("labelFor(%v) = %q, want %q", tc.overall, got, tc.want)
		}
	}
}
