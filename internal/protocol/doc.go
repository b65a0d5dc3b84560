// Package protocol defines the wire format spoken between clients and the
// um service: newline-delimited UTF-8 JSON envelopes exchanged in strict
// request/response order over a local IPC connection.
//
// Every request is a Message {id, type, data, timestamp}; every reply is a
// Response {id, type, success, data, error, timestamp}. The Codec frames one
// JSON object per line; a line that fails to parse, or a connection that
// closes mid-line, is a transport failure and the connection must be
// re-established.
//
// Payload structs for each message type live here so the server handlers and
// client wrappers agree on field names.
package protocol
