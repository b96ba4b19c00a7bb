// Package chat implements the chatbot.v1.ChatbotService gRPC API.
//
// The service is a thin translation layer over the session registry. It
// checks required request fields, calls the registry exactly once, and maps
// the result onto a fixed set of status codes:
//
//	InvalidArgument    empty session_id or prompt, malformed config, unknown model
//	ResourceExhausted  registry full, or ask cooldown active (with RetryInfo)
//	NotFound           unknown or deleted session
//	Unavailable        agent creation or agent call failed
//	Internal           anything else
//
// Nothing is retried here. Every call is logged once when it finishes.
package chat
