// Package telegram is the transport client for the Telegram Bot API.
//
// Only the calls the relay needs are implemented:
//
//   - sendMessage: JSON POST of chat_id, text and parse_mode "Markdown"
//   - getUpdates: long-poll GET with offset (cursor+1), timeout in seconds
//     and allowed_updates=["message"]
//   - getUpdates?offset=-1&limit=1: startup drain of stale updates
//   - getMe: credential check
//
// Every response is decoded from the { ok, result } envelope. Failures are
// returned as *TransportError and never retried here.
package telegram
