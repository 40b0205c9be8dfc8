package screener

import (
	"bytes"
	"fmt"
	"image/color"
	"image/png"
	"net/url"
	"strings"
	"sync"

	"github.com/fogleman/gg"
	"github.com/glaslos/ssdeep"
	"github.com/golang/freetype/truetype"
	"github.com/root4loot/goutils/log"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	imprintPadding    = 20
	imprintBorderSize = 1
)

// IsSimilarToAny checks if the image is a fuzzy duplicate of any image in
// results. Images too small to hash are never considered duplicates.
func (result Result) IsSimilarToAny(results []Result, similarityThreshold int) (bool, error) {
	if similarityThreshold < 1 || similarityThreshold > 100 {
		return false, fmt.Errorf("invalid similarity threshold: %d. Must be between 1 and 100", similarityThreshold)
	}

	hash1, err := ssdeep.FuzzyBytes(result.Image)
	if err != nil {
		log.Debugf("Could not hash screenshot of %s: %v", result.TargetURL, err)
		return false, nil
	}

	for _, r := range results {
		hash2, err := ssdeep.FuzzyBytes(r.Image)
		if err != nil {
			continue
		}

		score, err := ssdeep.Distance(hash1, hash2)
		if err != nil {
			continue
		}

		if score >= similarityThreshold {
			log.Debugf("%s is similar to %s with a score of %d. Skipping.. ", result.TargetURL, r.TargetURL, score)
			return true, nil
		}
	}
	return false, nil
}

// AddTextToImage adds a footer with the origin of rawURL to the bottom of the image
func (imgB Image) AddTextToImage(rawURL string) (Image, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	host := parsedURL.Host
	if strings.Contains(host, ":") {
		hostWithoutPort, port, _ := strings.Cut(host, ":")
		if (parsedURL.Scheme == "http" && port == "80") || (parsedURL.Scheme == "https" && port == "443") {
			host = hostWithoutPort
		}
	}

	printURL := parsedURL.Scheme + "://" + host

	img, err := png.Decode(bytes.NewReader(imgB))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	face, err := loadFont()
	if err != nil {
		return nil, err
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy() + imprintPadding*2 + imprintBorderSize
	dc := gg.NewContext(w, h)

	dc.DrawImage(img, 0, 0)

	yLine := float64(img.Bounds().Dy())
	dc.SetColor(color.White)
	dc.DrawRectangle(0, yLine, float64(w), float64(h)-yLine)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.SetLineWidth(float64(imprintBorderSize))
	dc.DrawLine(0, yLine, float64(w), yLine)
	dc.Stroke()
	dc.SetFontFace(face)
	dc.DrawStringAnchored(printURL, float64(w)/2, yLine+float64(imprintPadding), 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
	fontErr  error
)

func loadFont() (font.Face, error) {
	fontOnce.Do(func() {
		fontTTF, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("failed to parse font: %w", fontErr)
	}

	return truetype.NewFace(fontTTF, &truetype.Options{
		Size: 14,
	}), nil
}
