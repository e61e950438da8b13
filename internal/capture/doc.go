// Package capture turns raw byte chunks from up to five motion sensors into
// synchronized rows.
//
// Each active channel has a producer goroutine that owns the channel's
// ChannelBuffer and Normalizer:
//
//	port ──chunks──▶ ChannelBuffer ──frames──▶ ParseFrame ──▶ Normalizer
//	                                                              │
//	                                       reading / decode error │
//	                                                              ▼
//	               RowSink ◀──rows── Assembler ◀── session consumer ──▶ ErrorMonitor
//
// A single consumer goroutine owns the Assembler, the ErrorMonitor and the
// RowSink, so pending slots and the error count are never shared between
// goroutines.
//
// Session states:
//
//	┌──────┐  Start   ┌───────────┐  Stop / sources exhausted  ┌─────────┐
//	│ Idle │ ───────▶ │ Capturing │ ─────────────────────────▶ │ Stopped │
//	└──────┘          └─────┬─────┘                            └─────────┘
//	                        │ error budget / sink failure      ┌─────────┐
//	                        └────────────────────────────────▶ │ Aborted │
//	                                                           └─────────┘
//
// Stopped and Aborted are terminal; a new capture needs a new Session.
package capture
