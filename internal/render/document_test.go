package render_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkbio/internal/render"
)

func TestDocument_WrapsBody(t *testing.T) {
	doc := render.Document(`<p id="x">hi</p>`)

	assert.True(t, strings.HasPrefix(doc, "<!DOCTYPE html>\n<html lang=\"pt\">"))
	assert.Contains(t, doc, `<meta charset="UTF-8">`)
	assert.Contains(t, doc, "<title>Meu Site Personalizado</title>")
	assert.Contains(t, doc, `<script src="https://cdn.tailwindcss.com"></script>`)
	assert.Contains(t, doc, `<body class="flex items-center justify-center h-screen">`)
	assert.Contains(t, doc, `<p id="x">hi</p>`)
	assert.True(t, strings.HasSuffix(doc, "</html>"))
}

func TestMinify_KeepsContent(t *testing.T) {
	doc := render.Document("<div>\n    <p>  hello   world </p>\n</div>")
	min, err := render.Minify(doc)
	require.NoError(t, err)

	assert.Less(t, len(min), len(doc))
	assert.Contains(t, min, "hello world")
	assert.Contains(t, min, "cdn.tailwindcss.com")
	assert.Contains(t, min, "</html>")
}

func TestLocalReferences(t *testing.T) {
	assert.Empty(t, render.LocalReferences(render.Document(`<img src="https://cdn.example/a.png">`)))
	assert.Len(t, render.LocalReferences(`<img src="blob:a.png"><a href="blob:b">`), 2)
}
