// Package bus implements the in-memory publish/subscribe system: named
// channels with bounded FIFO message history, subscriber caps, synchronous
// delivery in publish order, and partial-failure-tolerant broadcast.
//
// The bus is single-process by design. An optional MessageSink mirrors
// every publish for external observers (e.g. Redis Streams) without
// affecting in-process delivery.
package bus
