package prompts

import "embed"

// TemplateFS exposes the prompt templates used for level extraction.
//
//go:embed templates/*.tmpl
var TemplateFS embed.FS
