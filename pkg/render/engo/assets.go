// pkg/render/engo/assets.go
package engo

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"
	"golang.org/x/image/font/gofont/gomono"
)

// FontURL is the name the HUD font is registered under
const FontURL = "gomono.ttf"

// Colours shared by the window renderer
var (
	ColorBackground = color.RGBA{R: 12, G: 14, B: 22, A: 255}
	ColorGround     = color.RGBA{R: 60, G: 120, B: 60, A: 255}
	ColorForce      = color.RGBA{R: 230, G: 60, B: 60, A: 255}
	ColorPlume      = color.RGBA{R: 255, G: 200, B: 40, A: 255}
	ColorAim        = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ColorHUD        = color.RGBA{R: 230, G: 230, B: 230, A: 255}
	ColorStatic     = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	ColorCOM        = color.RGBA{R: 80, G: 200, B: 255, A: 255}
)

// AssetManager resolves entity colour names and owns the HUD font
type AssetManager struct {
	palette map[string]color.Color
	font    *common.Font
}

// NewAssetManager creates an asset manager with the named colours used by
// scenarios and configs.
func NewAssetManager() *AssetManager {
	return &AssetManager{
		palette: map[string]color.Color{
			"white":    color.RGBA{R: 255, G: 255, B: 255, A: 255},
			"black":    color.RGBA{A: 255},
			"red":      color.RGBA{R: 255, A: 255},
			"green":    color.RGBA{G: 200, A: 255},
			"blue":     color.RGBA{R: 40, G: 90, B: 255, A: 255},
			"yellow":   color.RGBA{R: 255, G: 255, A: 255},
			"orange":   color.RGBA{R: 255, G: 165, A: 255},
			"gray":     color.RGBA{R: 128, G: 128, B: 128, A: 255},
			"grey":     color.RGBA{R: 128, G: 128, B: 128, A: 255},
			"skyblue":  color.RGBA{R: 135, G: 206, B: 235, A: 255},
			"seagreen": color.RGBA{R: 46, G: 139, B: 87, A: 255},
		},
	}
}

// Color returns the colour for name, or fallback when the name is unknown
func (am *AssetManager) Color(name string, fallback color.Color) color.Color {
	if c, ok := am.palette[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return fallback
}

// SetColor registers or replaces a named colour
func (am *AssetManager) SetColor(name string, c color.Color) {
	am.palette[strings.ToLower(name)] = c
}

// LoadAssets registers the embedded HUD font with engo's file loader. It is
// called from Preload.
func (am *AssetManager) LoadAssets() error {
	if err := engo.Files.LoadReaderData(FontURL, bytes.NewReader(gomono.TTF)); err != nil {
		return fmt.Errorf("failed to load HUD font: %w", err)
	}
	return nil
}

// Font returns the HUD font, creating it on first use
func (am *AssetManager) Font(size float64) (*common.Font, error) {
	if am.font != nil {
		return am.font, nil
	}
	f := &common.Font{URL: FontURL, FG: ColorHUD, Size: size}
	if err := f.CreatePreloaded(); err != nil {
		return nil, fmt.Errorf("failed to create HUD font: %w", err)
	}
	am.font = f
	return f, nil
}
