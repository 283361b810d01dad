// Package infra contains technical adapters: calendar sources, the SAT
// solver, MQTT announcements, metrics sinks and error reporting. These
// packages depend only on the interfaces defined in the core packages.
package infra
