// Package events provides message sink implementations for the bus.
//
// Implementations:
//   - redis: Redis Streams relay for external observers
package events
