/*
Package console bridges a remote duplex byte stream to a running
container's attached stdio.

The protocol is deliberately small: the client's first frame must name the
target descriptor (there is no default container and no guessing; a
missing descriptor aborts the session), and every later frame is raw stdin.
Container output flows back as raw bytes.

The two directions run as a structured pair: when either terminates (end
of stream, write failure, remote disconnect, request cancellation) both
ends are closed at once, unblocking the survivor. There is no half-open
state beyond that instant.

Transport bindings implement the Stream interface; pkg/api provides the
websocket binding.
*/
package console
