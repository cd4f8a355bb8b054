// Package app is the application layer - the only component that references
// multiple domain components. It owns one overlay pipeline (surface, manager,
// notifier, watcher) per map and orchestrates all use cases.
package app
