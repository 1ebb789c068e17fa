package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-gonic/gin"

	"quiz-server/quiz"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"pct": func(v float64) string { return fmt.Sprintf("%.2f%%", v) },
}

// NewRenderer loads the HTML templates for the progress page.
func NewRenderer() (multitemplate.Renderer, error) {
	layout, err := templateFS.ReadFile("templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read layout template: %w", err)
	}
	progress, err := templateFS.ReadFile("templates/progress.html")
	if err != nil {
		return nil, fmt.Errorf("failed to read progress template: %w", err)
	}
	renderer := multitemplate.NewRenderer()
	renderer.AddFromStringsFuncs("progress", templateFuncs, string(layout), string(progress))
	return renderer, nil
}

// Progress renders accuracy and per-subject progress.
// GET /progress
func Progress(svc *quiz.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := svc.Stats()
		if err != nil {
			_ = c.Error(err)
			c.String(http.StatusInternalServerError, "Failed to load progress")
			return
		}
		c.HTML(http.StatusOK, "progress", gin.H{
			"Title":  "Quiz Progress",
			"Stats":  st,
			"Window": quiz.RollingWindow,
		})
	}
}
