// Package overlay implements the overlay lifecycle manager and its
// notification channel.
//
// A Manager owns exactly one current rendered layer per map surface. Every
// refresh builds a new layer from the incoming payload, emits it to
// subscribers, then swaps it onto the surface inside a fresh layer group.
// Viewport reframing after an update is best-effort: an empty extent is logged
// and suppressed, never propagated.
package overlay
