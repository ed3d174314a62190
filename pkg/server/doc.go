// Package server is the connection multiplexer.
//
// One goroutine owns every listening and client socket. It blocks in a single
// readiness wait (epoll on Linux, poll(2) elsewhere), accepts connections,
// reads whatever is available into a per-connection buffer and re-runs
// request framing after every read. When a request is complete it is parsed,
// routed, answered with one blocking write and the connection is closed.
// There is no keep-alive.
//
// CGI scripts run inside the loop, so a slow script delays every other
// client until it finishes or hits its timeout. Idle clients are never timed
// out; a client that connects and sends nothing holds its descriptor until
// it disconnects or the server stops.
//
// The site configuration is read through an atomic pointer at dispatch time.
// SetSite swaps it without stopping the loop; listeners are fixed at Start.
package server
