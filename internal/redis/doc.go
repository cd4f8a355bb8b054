// Package redis implements the payload store on Redis.
//
// The latest payload per map lives under payload:<uuid> with a monotonic
// revision counter under payload:<uuid>:rev. Every store bumps the counter and
// announces the new revision on a Pub/Sub channel so other instances can react
// without polling.
package redis
