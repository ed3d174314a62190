// Package static holds the file-system collaborators of the request
// handlers: reading files, listing directories, MIME lookup and upload
// persistence. Nothing here knows about HTTP.
package static
