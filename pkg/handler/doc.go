// Package handler turns a routed request into a response.
//
// Handlers are looked up by method in a single table. Policy that applies to
// every method (unknown methods, allow_methods, return redirects) runs before
// the table; custom error pages are applied after it.
package handler
