package huddle

import "embed"

// EmailFS holds the transactional email templates, one directory per template
// with an html.tmpl and a plaintext.tmpl.
//
//go:embed templates/emails
var EmailFS embed.FS
