package compose

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Asset names used by the layout.
const (
	AssetLogo      = "logo"
	AssetWatermark = "watermark"
	AssetSignature = "signature"
)

var (
	// ErrAssetMissing means a static image could not be read. It is a
	// deployment problem, not a user error.
	ErrAssetMissing = errors.New("static asset unavailable")
	// ErrRender means the PDF backend refused to draw the page.
	ErrRender = errors.New("receipt rendering failed")
)

// AssetPaths locates the three static images on the local file system.
type AssetPaths struct {
	Logo      string `yaml:"logo"`
	Watermark string `yaml:"watermark"`
	Signature string `yaml:"signature"`
}

// Asset is one image read from disk.
type Asset struct {
	Name string
	Path string
	Type string
	Data []byte
}

func (p AssetPaths) named() [][2]string {
	return [][2]string{
		{AssetLogo, p.Logo},
		{AssetWatermark, p.Watermark},
		{AssetSignature, p.Signature},
	}
}

// LoadAssets reads all images in layout order. Nothing is returned unless every asset is usable.
func LoadAssets(p AssetPaths) ([]Asset, error) {
	assets := make([]Asset, 0, 3)
	for _, np := range p.named() {
		a, err := loadAsset(np[0], np[1])
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// CheckAssets reports every asset that cannot be loaded.
func CheckAssets(p AssetPaths) error {
	var errs []error
	for _, np := range p.named() {
		if _, err := loadAsset(np[0], np[1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func loadAsset(name, path string) (Asset, error) {
	if path == "" {
		return Asset{}, fmt.Errorf("%w: %s: no path configured", ErrAssetMissing, name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %s: %v", ErrAssetMissing, name, err)
	}
	if len(data) == 0 {
		return Asset{}, fmt.Errorf("%w: %s: %s is empty", ErrAssetMissing, name, path)
	}
	typ, err := imageType(path, data)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %s: %v", ErrRender, name, err)
	}
	return Asset{Name: name, Path: path, Type: typ, Data: data}, nil
}

// imageType picks the fpdf image type from the extension, falling back to content sniffing.
func imageType(path string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "PNG", nil
	case ".jpg", ".jpeg":
		return "JPG", nil
	case ".gif":
		return "GIF", nil
	}
	switch ct := http.DetectContentType(data); ct {
	case "image/png":
		return "PNG", nil
	case "image/jpeg":
		return "JPG", nil
	case "image/gif":
		return "GIF", nil
	default:
		return "", fmt.Errorf("unsupported image format %q", ct)
	}
}
