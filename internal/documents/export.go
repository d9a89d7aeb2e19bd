package documents

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os/exec"
	"strings"

	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"
)

// Format is an export target.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatLaTeX    Format = "latex"
	FormatPDF      Format = "pdf"
)

// Valid reports whether f is a known export format.
func (f Format) Valid() bool {
	switch f {
	case FormatMarkdown, FormatHTML, FormatLaTeX, FormatPDF:
		return true
	}
	return false
}

// Export is a rendered file ready to be sent to the client.
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PDFRenderer turns a standalone HTML page into a PDF.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, html []byte) ([]byte, error)
}

// CommandRenderer pipes HTML into an external converter on stdin and reads
// the PDF from its stdout.
type CommandRenderer struct {
	Command []string
}

// DefaultPDFCommand is used when no command is configured.
var DefaultPDFCommand = []string{"wkhtmltopdf", "--quiet", "-", "-"}

func (c CommandRenderer) RenderPDF(ctx context.Context, html []byte) ([]byte, error) {
	argv := c.Command
	if len(argv) == 0 {
		argv = DefaultPDFCommand
	}
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(html)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w: %s", argv[0], err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("running %s: produced no output", argv[0])
	}
	return stdout.Bytes(), nil
}

// Exporter renders documents in every supported format.
type Exporter struct {
	md  goldmark.Markdown
	pdf PDFRenderer
}

func NewExporter(pdf PDFRenderer) *Exporter {
	if pdf == nil {
		pdf = CommandRenderer{}
	}
	return &Exporter{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
		),
		pdf: pdf,
	}
}

// Export renders d as format.
func (e *Exporter) Export(ctx context.Context, d *Document, format Format) (*Export, error) {
	base := exportBaseName(d.Title)
	switch format {
	case FormatMarkdown:
		return &Export{Filename: base + ".md", ContentType: "text/markdown; charset=utf-8", Data: Markdown(d)}, nil
	case FormatHTML:
		page, err := e.HTML(d)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: base + ".html", ContentType: "text/html; charset=utf-8", Data: page}, nil
	case FormatLaTeX:
		z, err := LaTeXZip(d)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: base + ".zip", ContentType: "application/zip", Data: z}, nil
	case FormatPDF:
		page, err := e.HTML(d)
		if err != nil {
			return nil, err
		}
		pdf, err := e.pdf.RenderPDF(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("rendering pdf: %w", err)
		}
		return &Export{Filename: base + ".pdf", ContentType: "application/pdf", Data: pdf}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Markdown renders headings as # and ## and paragraphs as plain blocks.
func Markdown(d *Document) []byte {
	var b strings.Builder
	for _, s := range d.Content.Sections {
		switch s.Type {
		case SectionHeading1:
			b.WriteString("# ")
		case SectionHeading2:
			b.WriteString("## ")
		}
		b.WriteString(s.Content)
		b.WriteString("\n\n")
	}
	return []byte(b.String())
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; }
h1, h2, h3 { color: #2c3e50; }
code { background: #f5f5f5; padding: 2px 5px; }
pre { background: #f5f5f5; padding: 10px; overflow: auto; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders the markdown form into a standalone page.
func (e *Exporter) HTML(d *Document) ([]byte, error) {
	var body bytes.Buffer
	if err := e.md.Convert(Markdown(d), &body); err != nil {
		return nil, fmt.Errorf("converting markdown: %w", err)
	}
	var page bytes.Buffer
	err := pageTemplate.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{d.Title, template.HTML(body.String())})
	if err != nil {
		return nil, fmt.Errorf("rendering page: %w", err)
	}
	return page.Bytes(), nil
}

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`&`, `\&`,
	`%`, `\%`,
	`$`, `\$`,
	`#`, `\#`,
	`_`, `\_`,
	`~`, `\textasciitilde{}`,
	`^`, `\textasciicircum{}`,
)

// EscapeLaTeX escapes characters with special meaning in LaTeX text.
func EscapeLaTeX(s string) string {
	return latexEscaper.Replace(s)
}

// LaTeX renders d as a standalone article.
func LaTeX(d *Document) []byte {
	var b strings.Builder
	b.WriteString("\\documentclass{article}\n\\usepackage{graphicx}\n\n")
	fmt.Fprintf(&b, "\\title{%s}\n\n\\begin{document}\n\n\\maketitle\n\n", EscapeLaTeX(d.Title))
	for _, s := range d.Content.Sections {
		switch s.Type {
		case SectionHeading1:
			fmt.Fprintf(&b, "\\section{%s}\n", EscapeLaTeX(s.Content))
		case SectionHeading2:
			fmt.Fprintf(&b, "\\subsection{%s}\n", EscapeLaTeX(s.Content))
		default:
			b.WriteString(EscapeLaTeX(s.Content))
			b.WriteString("\n\n")
		}
	}
	b.WriteString("\\end{document}\n")
	return []byte(b.String())
}

// LaTeXZip packs the LaTeX source as main.tex inside a zip archive.
func LaTeXZip(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("main.tex")
	if err != nil {
		return nil, fmt.Errorf("creating zip entry: %w", err)
	}
	if _, err := w.Write(LaTeX(d)); err != nil {
		return nil, fmt.Errorf("writing zip entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing zip: %w", err)
	}
	return buf.Bytes(), nil
}

// exportBaseName makes a title safe to use as a download filename.
func exportBaseName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		return "document"
	}
	return name
}
