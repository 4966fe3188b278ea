// Package templates holds the HTMX partials returned to the upload page.
//
// Components are authored in .templ files; the *_templ.go files next to
// them are generated and committed.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate
