// Package mcpserver exposes conversations as MCP tools.
//
// Four tools are registered:
//
//   - send_message(message): open a conversation and return the first reply
//   - continue_conversation(conversation_id, message): send and wait
//   - notify_user(conversation_id, message): send without waiting
//   - end_conversation(conversation_id, message): close the conversation
//
// Tool calls never fail at the protocol level. Bad arguments and errors
// from below come back as a result with isError set and text of the form
// "Error: <message>".
//
// Calls are dispatched one at a time. The MCP library may run handlers
// concurrently over either transport, and the conversation manager relies
// on a single caller.
package mcpserver
