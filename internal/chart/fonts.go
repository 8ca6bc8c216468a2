package chart

import (
	"fmt"
	"sync"

	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"gonum.org/v1/plot/font"
)

var (
	goFont   = font.Font{Typeface: "Go"}
	fontOnce sync.Once
	fontErr  error
)

// loadFonts registers Go Regular with the plot font cache so hydrographs do
// not depend on the default Liberation faces.
func loadFonts() {
	fontOnce.Do(func() {
		parsed, err := opentype.Parse(goregular.TTF)
		if err != nil {
			fontErr = fmt.Errorf("parse Go Regular: %w", err)
			return
		}
		font.DefaultCache.Add(font.Collection{{Font: goFont, Face: parsed}})
	})
}
