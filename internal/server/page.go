package server

import (
	"embed"
	"html/template"
)

//go:embed web/index.html web/static
var webFS embed.FS

const pageTemplateName = "index.html"

// pageData is what the index template renders.
type pageData struct {
	UpstreamURL    string
	Models         []string
	Samplers       []string
	DefaultSampler string
	DefaultSize    int
	DefaultSteps   int
}

func parsePage() (*template.Template, error) {
	return template.ParseFS(webFS, "web/"+pageTemplateName)
}
