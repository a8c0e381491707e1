package vilawweb

import "embed"

// TemplateFS contains the embedded HTML templates used for rendering the chat page. These templates
// are organized in a directory structure that separates layouts, pages, and partial views.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the embedded static assets: the script that submits questions and renders the
// streamed answers, and the stylesheet.
//
//go:embed static/*
var StaticFS embed.FS
