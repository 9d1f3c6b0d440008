package chat

import "github.com/keelanv/parley/internal/session"

// eventBufferSize is sized for ~1.5s of fragment bursts at 60 FPS
// refresh rate, so render delays don't backpressure the stream loop.
const eventBufferSize = 100

// Row is one rendered conversation line.
type Row struct {
	Role string
	Text string
}

// Fragment carries the cumulative assistant text for the in-flight
// stream. First marks the initial fragment: the sink appends a new row
// for it, every later fragment replaces that row.
type Fragment struct {
	Text  string
	First bool
}

// Event is a discriminated union of everything the conductor pushes to
// the presentation layer. Exactly one field is set per event. A single
// channel with a union type keeps the consumer's select logic simple
// and avoids multi-channel closure handling.
type Event struct {
	Rows        []Row         // full row list replacement (non-nil when set)
	Fragment    *Fragment     // incremental assistant text
	Sessions    []session.Ref // history list refresh, newest first
	Attachments []string      // names of currently staged attachments
	Err         error         // non-fatal failure notice
}
