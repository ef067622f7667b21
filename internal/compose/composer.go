package compose

import (
	"fmt"
	"time"

	"receipt2pdf/internal/receipt"
)

// Composer renders receipts for one issuing practice. It holds no per-request
// state and is safe for concurrent use.
type Composer struct {
	assets   AssetPaths
	practice receipt.Practice
}

// New returns a Composer reading images from assets on every render.
func New(assets AssetPaths, practice receipt.Practice) *Composer {
	return &Composer{assets: assets, practice: practice}
}

// Practice returns the issuer block printed on every receipt.
func (c *Composer) Practice() receipt.Practice { return c.practice }

// Assets returns the configured image paths.
func (c *Composer) Assets() AssetPaths { return c.assets }

// Compose renders f into a single-page PDF. The output depends only on f, the
// practice and the image files.
func (c *Composer) Compose(f receipt.Fields) ([]byte, error) {
	assets, err := LoadAssets(c.assets)
	if err != nil {
		return nil, err
	}

	cv := newPDFCanvas(documentStamp(f.Date))
	cv.setInfo("Recibo - "+f.PayerName, c.practice.SignerName)
	for _, a := range assets {
		cv.register(a)
	}
	Layout(A4, f, c.practice).Draw(cv)

	out, err := cv.output()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return out, nil
}

// documentStamp pins the PDF creation date to the receipt date so that
// identical input yields identical bytes.
func documentStamp(d time.Time) time.Time {
	if d.IsZero() {
		return time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
