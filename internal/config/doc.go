// Package config handles configuration loading for coven-telegram.
//
// # Overview
//
// Configuration comes from environment variables, optionally layered over a
// YAML or TOML file. It is loaded once at startup and never changed.
//
// # Sources
//
// In order, later sources win:
//
//  1. The file named by COVEN_TELEGRAM_CONFIG (.yaml, .yml or .toml)
//  2. Environment variables (a .env file is loaded into the environment first)
//  3. Built-in defaults for anything still unset
//
// # Environment Variables
//
//	CALLME_TELEGRAM_BOT_TOKEN   required
//	CALLME_RESPONSE_TIMEOUT_MS  default 180000
//	CALLME_TELEGRAM_CHAT_ID     optional; otherwise bound from the first inbound message
//	CALLME_TELEGRAM_API_URL     default https://api.telegram.org
//	CALLME_AGENT_LABEL          default Agent
//	CALLME_LOG_LEVEL            debug, info, warn, error
//	CALLME_LOG_FORMAT           text, json
//	CALLME_LEDGER_PATH          enables the SQLite ledger
//	CALLME_HTTP_ADDR            enables the ops router
//	CALLME_MCP_TRANSPORT        stdio (default) or http
//	CALLME_MCP_TOKEN            bearer token, required for http
//
// # File Format
//
// Values may reference environment variables with ${VAR_NAME}:
//
//	telegram:
//	  bot_token: "${TELEGRAM_TOKEN}"
//	  chat_id: 123456789
//	  poll_window: "10s"
//	  poll_interval: "500ms"
//
//	conversation:
//	  response_timeout_ms: 180000
//	  agent_label: "Agent"
//
//	ledger:
//	  path: "/var/lib/coven-telegram/ledger.db"
//
//	server:
//	  http_addr: "127.0.0.1:8089"
//	  mcp_transport: "stdio"
//
//	logging:
//	  level: "info"
//	  format: "text"
//
// # Errors
//
// Every failure is a *ConfigurationError naming the offending key. The
// process does not start with invalid configuration.
package config
