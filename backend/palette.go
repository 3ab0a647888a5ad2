package backend

// palette maps recognized color names to RGBA values in the compositor's
// 0.0-1.0 channel range.
var palette = map[string][4]float64{
	"red":     {1.0, 0.0, 0.0, 1.0},
	"green":   {0.0, 1.0, 0.0, 1.0},
	"blue":    {0.0, 0.0, 1.0, 1.0},
	"yellow":  {1.0, 1.0, 0.0, 1.0},
	"cyan":    {0.0, 1.0, 1.0, 1.0},
	"magenta": {1.0, 0.0, 1.0, 1.0},
	"orange":  {1.0, 0.6, 0.0, 1.0},
	"purple":  {0.5, 0.0, 0.5, 1.0},
	"white":   {1.0, 1.0, 1.0, 1.0},
	"black":   {0.0, 0.0, 0.0, 1.0},
	"gray":    {0.5, 0.5, 0.5, 1.0},
	"grey":    {0.5, 0.5, 0.5, 1.0},
}

// defaultColor is the fallback when a name is unrecognized.
var defaultColor = [4]float64{0.5, 0.5, 0.5, 1.0}

// ColorRGBA resolves a color name to RGBA channels, falling back to gray.
func ColorRGBA(name string) [4]float64 {
	if c, ok := palette[name]; ok {
		return c
	}
	return defaultColor
}
