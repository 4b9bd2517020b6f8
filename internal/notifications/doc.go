// Package notifications delivers operator signals via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml (or LIQUIDPLAN_NTFY_TOPIC) and degrades to a no-op when no topic
// is set. Enumerated events cover the moments an operator must act or should
// know about: tip racks to replace, a full waste bin, a finished run, and a
// failed run. Each event can be switched off in the [notifications] section.
//
// Protocol code depends only on the small Service interface.
package notifications
