// Package notifications delivers ingestion events via ntfy push messages.
//
// The default implementation publishes to the topic configured in
// config.toml and degrades to a no-op when no topic is set. Each event kind
// can be muted individually through the [notifications] toggles.
package notifications
