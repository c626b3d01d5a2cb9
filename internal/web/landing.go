package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

type endpoint struct {
	method, path, desc string
}

var endpoints = []endpoint{
	{"POST", "/login", "Exchange email and password for a bearer token"},
	{"GET", "/logout", "Revoke the current token"},
	{"GET", "/users", "List users (page, per_page, sort, order_by, search, filter)"},
	{"POST", "/users", "Create a user from a multipart form"},
	{"GET", "/users/{id}", "Show one user"},
	{"POST", "/users/{id}", "Update a user from a multipart form"},
	{"DELETE", "/users/{id}", "Delete a user"},
	{"POST", "/users-delete-multiple", "Delete several users"},
	{"GET", "/users-export", "Download all users as CSV"},
	{"GET", "/roles", "List roles"},
	{"GET", "/healthz", "Database and upload status"},
}

// landingPage renders the API index served at /.
func landingPage() templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!doctype html><html lang="en"><head><meta charset="utf-8"><title>User Registry API</title>`+
			`<style>body{font-family:sans-serif;margin:2rem}td{padding:.2rem .8rem}code{font-weight:bold}</style></head>`+
			`<body><h1>User Registry API</h1><p>All routes except /login and /healthz need an <code>Authorization: Bearer</code> header.</p><table>`); err != nil {
			return err
		}
		for _, e := range endpoints {
			row := "<tr><td><code>" + templ.EscapeString(e.method) + "</code></td><td>" +
				templ.EscapeString(e.path) + "</td><td>" + templ.EscapeString(e.desc) + "</td></tr>"
			if _, err := io.WriteString(w, row); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</table></body></html>")
		return err
	})
}
