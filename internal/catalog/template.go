package catalog

import (
	"fmt"
	"math"
	"text/template"
)

// TemplateFuncs are available to rule title and detail templates.
var TemplateFuncs = template.FuncMap{
	// round formats a number with no decimals.
	"round": func(v float64) string {
		return fmt.Sprintf("%d", int64(math.Round(v)))
	},
	// pct formats a 0..1 ratio as a whole percentage.
	"pct": func(v float64) string {
		return fmt.Sprintf("%d%%", int64(math.Round(v*100)))
	},
	"neg": func(v float64) float64 { return -v },
}

func parseTemplate(name, src string) (*template.Template, error) {
	return template.New(name).Funcs(TemplateFuncs).Option("missingkey=error").Parse(src)
}
