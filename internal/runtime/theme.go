package runtime

// Theme colors of the dark config.
const (
	gentleLight = "#bbb"
	lightColor  = "#fff"
	subtle      = "#444"
)

// Config is the render configuration of a panel.
type Config struct {
	Dark bool
}

// Document returns the config document merged into compiled specs.
func (c Config) Document() map[string]any {
	return ThemeConfig(c.Dark)
}

// ThemeConfig returns a fresh config document for the theme. The
// background is always transparent.
func ThemeConfig(dark bool) map[string]any {
	cfg := map[string]any{}
	if dark {
		cfg = map[string]any{
			"view":  map[string]any{"stroke": subtle},
			"title": map[string]any{"color": lightColor, "subtitleColor": lightColor},
			"style": map[string]any{
				"guide-label": map[string]any{"fill": lightColor},
				"guide-title": map[string]any{"fill": lightColor},
			},
			"axis": map[string]any{
				"domainColor": gentleLight,
				"gridColor":   subtle,
				"tickColor":   gentleLight,
			},
		}
	}
	cfg["background"] = "transparent"
	return cfg
}
