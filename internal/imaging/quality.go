package imaging

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// Quality labels ordered from best to worst.
const (
	QualityExcellent = "excellent"
	QualityGood      = "good"
	QualityFair      = "fair"
	QualityPoor      = "poor"
	QualityUnknown   = "unknown"
)

// QualityReport scores an input image on the axes that matter for
// detection accuracy. All scores are in [0, 1].
type QualityReport struct {
	ResolutionScore float64 `json:"resolutionScore"`
	SharpnessScore  float64 `json:"sharpnessScore"`
	LightingScore   float64 `json:"lightingScore"`
	OverallQuality  float64 `json:"overallQuality"`
	QualityLabel    string  `json:"qualityLabel"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
}

const (
	resolutionWeight = 0.40
	sharpnessWeight  = 0.35
	lightingWeight   = 0.25

	// Metric failures fall back to a neutral score instead of failing
	// the whole assessment.
	neutralScore = 0.5

	sampleEdge = 200
)

// AssessQuality scores the raw image bytes. Decode failure returns a
// report with neutral scores and the unknown label rather than an error.
func AssessQuality(data []byte) QualityReport {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return QualityReport{
			ResolutionScore: neutralScore,
			SharpnessScore:  neutralScore,
			LightingScore:   neutralScore,
			OverallQuality:  neutralScore,
			QualityLabel:    QualityUnknown,
		}
	}
	return AssessDecoded(img)
}

// AssessDecoded scores an already-decoded image.
func AssessDecoded(img image.Image) QualityReport {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	resScore := resolutionScore(width, height)

	sharpScore := neutralScore
	lightScore := neutralScore
	if mean, variance, ok := intensityStats(img); ok {
		sharpScore = sharpnessScore(variance)
		lightScore = lightingScore(mean)
	}

	overall := resolutionWeight*resScore + sharpnessWeight*sharpScore + lightingWeight*lightScore

	return QualityReport{
		ResolutionScore: resScore,
		SharpnessScore:  sharpScore,
		LightingScore:   lightScore,
		OverallQuality:  overall,
		QualityLabel:    labelFor(overall),
		Width:           width,
		Height:          height,
	}
}

func labelFor(overall float64) string {
	switch {
	case overall >= 0.8:
		return QualityExcellent
	case overall >= 0.6:
		return QualityGood
	case overall >= 0.4:
		return QualityFair
	default:
		return QualityPoor
	}
}

// resolutionScore steps on the shorter dimension. Microscopy detail is
// unusable below a few hundred pixels.
func resolutionScore(width, height int) float64 {
	shorter := width
	if height < shorter {
		shorter = height
	}
	switch {
	case shorter >= 1200:
		return 1.0
	case shorter >= 800:
		return 0.85
	case shorter >= 500:
		return 0.7
	case shorter >= 300:
		return 0.5
	case shorter >= 200:
		return 0.3
	default:
		return 0.15
	}
}

// sharpnessScore maps pixel-intensity variance to [0,1]. Blurry frames
// cluster well below a variance of 500 on the 0-255 scale.
func sharpnessScore(variance float64) float64 {
	switch {
	case variance >= 3500:
		return 1.0
	case variance >= 2000:
		return 0.85
	case variance >= 1000:
		return 0.7
	case variance >= 500:
		return 0.5
	case variance >= 200:
		return 0.3
	default:
		return 0.15
	}
}

const (
	lightingIdealLow  = 90.0
	lightingIdealHigh = 170.0
	lightingFalloff   = 85.0
)

// lightingScore penalizes mean brightness outside the ideal exposure band.
func lightingScore(mean float64) float64 {
	var dist float64
	switch {
	case mean < lightingIdealLow:
		dist = lightingIdealLow - mean
	case mean > lightingIdealHigh:
		dist = mean - lightingIdealHigh
	default:
		return 1.0
	}
	score := 1.0 - dist/lightingFalloff
	if score < 0 {
		return 0
	}
	return score
}

// intensityStats computes mean and variance of grayscale intensity over
// a small resample so cost is independent of input size.
func intensityStats(img image.Image) (mean, variance float64, ok bool) {
	small := resize.Resize(sampleEdge, sampleEdge, img, resize.Bilinear)
	bounds := small.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0, 0, false
	}

	var sum float64
	intensities := make([]float64, 0, total)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := small.At(x, y).RGBA()
			// Luma approximation on the 0-255 scale.
			v := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
			intensities = append(intensities, v)
			sum += v
		}
	}

	mean = sum / float64(total)
	var sq float64
	for _, v := range intensities {
		d := v - mean
		sq += d * d
	}
	variance = sq / float64(total)
	return mean, variance, true
}
