// Package output exports compiled summaries to files.
package output

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"docsum/internal/logger"
)

const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func htmlPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
	})
	return policy
}

// Manager writes summaries into one directory.
type Manager struct {
	dir string
	log logger.Logger
}

func NewManager(dir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{dir: dir, log: log}
}

// Save writes summary in every requested format and returns the paths
// written. Unknown formats are an error; nothing is written for them.
func (m *Manager) Save(filename, summary string, formats []string) ([]string, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	var written []string
	for _, format := range formats {
		var path, content string
		switch strings.ToLower(format) {
		case FormatMarkdown, "md":
			path = filepath.Join(m.dir, stem+".md")
			content = Markdown(summary)
		case FormatHTML:
			path = filepath.Join(m.dir, stem+".html")
			content = HTML(filename, summary)
		default:
			return written, fmt.Errorf("unknown output format %q", format)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
		m.log.Info("summary saved", logger.String("file", filename), logger.String("path", path))
	}
	return written, nil
}

// Markdown terminates a summary with a horizontal rule.
func Markdown(summary string) string {
	return summary + "\n\n---\n"
}

// HTML renders a summary as a standalone page. Blank-line separated blocks
// become paragraphs; markdown headings become heading elements.
func HTML(title, summary string) string {
	var b strings.Builder
	for _, block := range strings.Split(summary, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		switch {
		case strings.HasPrefix(block, "## "):
			fmt.Fprintf(&b, "<h2>%s</h2>\n", html.EscapeString(strings.TrimPrefix(block, "## ")))
		case strings.HasPrefix(block, "# "):
			fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(strings.TrimPrefix(block, "# ")))
		default:
			lines := strings.Split(block, "\n")
			for i, l := range lines {
				lines[i] = html.EscapeString(l)
			}
			fmt.Fprintf(&b, "<p>%s</p>\n", strings.Join(lines, "<br>"))
		}
	}
	return fmt.Sprintf("<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n%s</body></html>\n",
		html.EscapeString(title), htmlPolicy().Sanitize(b.String()))
}
