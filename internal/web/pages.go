package web

import (
	"embed"
	"fmt"
	"io"
	"io/fs"

	"github.com/BerylCAtieno/tech-stack-advisor/internal/models"
	"github.com/flosch/pongo2/v6"
)

//go:embed templates/*.html
var templateFiles embed.FS

type pages struct {
	index  *pongo2.Template
	report *pongo2.Template
}

func loadPages() (*pages, error) {
	sub, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		return nil, fmt.Errorf("templates: %w", err)
	}
	set := pongo2.NewSet("advisor", pongo2.NewFSLoader(sub))

	index, err := set.FromFile("index.html")
	if err != nil {
		return nil, fmt.Errorf("load index template: %w", err)
	}
	report, err := set.FromFile("report.html")
	if err != nil {
		return nil, fmt.Errorf("load report template: %w", err)
	}
	return &pages{index: index, report: report}, nil
}

type card struct {
	Kind    string
	Section models.AdviceSection
}

func cards(advice *models.AdviceResponse) []card {
	if advice == nil {
		return nil
	}
	return []card{
		{Kind: "project", Section: advice.ProjectOverview},
		{Kind: "frontend", Section: advice.FrontendAnalysis},
		{Kind: "backend", Section: advice.BackendAnalysis},
	}
}

func render(w io.Writer, tpl *pongo2.Template, data pongo2.Context) error {
	return tpl.ExecuteWriter(data, w)
}
