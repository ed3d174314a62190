// Package httpwire implements the HTTP/1.1 subset the server speaks on the
// wire: incremental request framing, request parsing and response assembly.
//
// Framing and parsing are separate steps. Frame is run after every read on a
// connection and only answers "is a whole request buffered yet". Once it says
// yes, ParseRequest turns exactly that many bytes into a Request. A malformed
// request line is a parse failure (ErrMalformedRequestLine), never an
// incomplete frame.
//
// Every response produced by this package carries Content-Type,
// Content-Length, Connection: close and a Server header. There is no
// keep-alive: one request per connection.
package httpwire
