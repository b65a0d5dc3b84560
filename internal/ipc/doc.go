// Package ipc carries the newline-JSON protocol over local transports: a
// Unix domain socket on POSIX systems and a named pipe on Windows.
//
// The server reads one request envelope at a time per connection and writes
// exactly one response for each, in order. Clients serialize calls over a
// single connection.
package ipc
