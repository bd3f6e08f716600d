// Package messaging publishes domain events to a message broker.
//
// Use cases depend on Publisher only. The broker is picked at startup by
// driver name: NATS, NSQ, Kafka, Google Pub/Sub, or "log" which writes the
// event to the structured log for local development.
package messaging
