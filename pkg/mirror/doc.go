// Package mirror keeps a desktop browser window and a device-emulating mobile
// window in lock-step.
//
// # Architecture
//
// The package is built around a small set of collaborating types:
//
//  1. PairStore: bidirectional tab pairing with direction metadata
//  2. SessionState: window ids, the creation guard and the focused window
//  3. Synchronizer: the event loop reacting to host lifecycle events
//  4. Bootstrapper: computes geometry and opens the mobile window
//  5. RequestRewriter: swaps the User-Agent on mobile-side requests
//  6. MessageRelay: forwards content-script messages between paired tabs
//
// The host runtime (a real browser, or a fake in tests) is only reached
// through the Host interface. Everything the host reports arrives as an Event
// on Host.Events and is processed one at a time by Synchronizer.Run.
//
// # Session Lifecycle
//
//  1. Idle: no windows tracked, no pairs
//  2. StartSession: the bootstrapper opens the mobile window and seeds the
//     first pair
//  3. Active: tab creation, removal, activation and navigation are replayed
//     on the paired side
//  4. Mobile window closed: all state is reset and the session returns to
//     Idle
//
// # Echo Suppression
//
// Every command the synchronizer sends to the host is tagged with an origin
// id and recorded in an echo ledger together with the event it is expected to
// produce. When that event comes back it is consumed instead of being
// replayed again.
package mirror
