// Package conversation tracks relayed conversations between an agent and
// the human on the other end of the chat.
//
// # Overview
//
// A Manager owns every live Session. Sessions move through one lifecycle:
//
//	Open -> Active -> Ended
//
// Open exists only while the first exchange is in flight; a failure there
// removes the session before the error is returned. Active sessions accept
// any number of Continue and Notify calls. End sends a closing message and
// removes the session immediately, so no history outlives it.
//
// # Operations
//
//   - Open(ctx, text): start a conversation and wait for the first reply
//   - Continue(ctx, id, text): send and wait for the next reply
//   - Notify(ctx, id, text): send without waiting
//   - End(ctx, id, text): send the closing message and drop the session
//   - Shutdown(): discard every session
//
// # Dispatch
//
// A Manager is not safe for concurrent operations. Callers must run one
// operation at a time: the poll cursor and destination in waiter.State are
// shared by every session and two overlapping waits would race on them.
// The MCP command surface enforces this with a dispatch lock.
//
// # Ledger
//
// Each exchanged turn is offered to an optional store.Ledger. Ledger
// failures are logged and never fail the operation.
package conversation
