// Package cgi runs CGI/1.1 scripts for the server.
//
// Each request gets its own child process. The request body goes to the
// child's stdin and its stdout is read back, both at the same time, so
// neither side can fill a pipe and stall the other. The child is always
// reaped before Execute returns, including on timeout, where it is killed
// first.
//
// The script's output is split into CGI headers and a body at the first
// blank line. A Status header sets the response status; a Location header
// without one becomes a 302. Content-Length is always recomputed from the
// body.
package cgi
