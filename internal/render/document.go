package render

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/html"
)

// ExportFileName is the name offered for the downloaded document.
const ExportFileName = "meu_site.html"

const documentHead = `<!DOCTYPE html>
<html lang="pt">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Meu Site Personalizado</title>
  <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="flex items-center justify-center h-screen">
`

const documentTail = `
</body>
</html>`

// Document wraps captured preview markup in the fixed static boilerplate.
func Document(body string) string {
	var sb strings.Builder
	sb.Grow(len(documentHead) + len(body) + len(documentTail))
	sb.WriteString(documentHead)
	sb.WriteString(body)
	sb.WriteString(documentTail)
	return sb.String()
}

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.Add("text/html", &html.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m
}

// Minify shrinks a serialized document. Inline scripts are left as-is.
func Minify(doc string) (string, error) {
	out, err := minifier.String("text/html", doc)
	if err != nil {
		return "", fmt.Errorf("minify document: %w", err)
	}
	return out, nil
}

var localRef = regexp.MustCompile(`(?:src|href)="blob:[^"]*"`)

// LocalReferences returns every attribute in doc that still points at a
// local-only blob. A publishable document has none.
func LocalReferences(doc string) []string {
	return localRef.FindAllString(doc, -1)
}
