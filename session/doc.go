// Package session implements the per-instance authenticated session store with
// sliding idle timeout and absolute expiry.
//
// # Design
//
// One [Manager] owns one session at a time — the unit of isolation is the host
// instance (a browser tab, a CLI process), never shared across instances. The
// clock and the persistence surface are constructor-injected so expiry can be
// tested deterministically without real timers. Activity detection is
// decoupled from any input surface: the host adapts its own event sources to
// an [ActivityMonitor] and the manager only consumes activity pulses.
//
// A monotonically increasing generation counter guards against a slow Create
// racing a Clear or an expiry: writes carrying a stale generation are rejected
// rather than resurrecting a dead session.
//
// # What this package must NOT do
//
//   - Store secret material; [User] is a sanitized projection by construction.
//   - Synchronize sessions across instances.
//   - Distinguish idle from absolute expiry to the expiration callback.
package session
