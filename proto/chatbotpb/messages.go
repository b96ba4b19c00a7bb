// ABOUTME: Typed wrappers over dynamic messages for the chatbot.v1 request and response types
// ABOUTME: Getters are nil-safe like generated code; setters chain for terse construction

package chatbotpb

import (
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

func getString(m *dynamicpb.Message, name protoreflect.Name) string {
	if m == nil {
		return ""
	}
	return m.Get(m.Descriptor().Fields().ByName(name)).String()
}

func setString(m *dynamicpb.Message, name protoreflect.Name, v string) {
	fd := m.Descriptor().Fields().ByName(name)
	if v == "" {
		m.Clear(fd)
		return
	}
	m.Set(fd, protoreflect.ValueOfString(v))
}

// CreateSessionRequest carries the JSON session config.
type CreateSessionRequest struct{ *dynamicpb.Message }

// NewCreateSessionRequest returns an empty CreateSessionRequest.
func NewCreateSessionRequest() *CreateSessionRequest {
	return &CreateSessionRequest{dynamicpb.NewMessage(createSessionRequestDesc)}
}

func (x *CreateSessionRequest) msg() *dynamicpb.Message {
	if x == nil {
		return nil
	}
	return x.Message
}

// GetConfig returns the config field.
func (x *CreateSessionRequest) GetConfig() string { return getString(x.msg(), "config") }

// SetConfig sets the config field.
func (x *CreateSessionRequest) SetConfig(v string) *CreateSessionRequest {
	setString(x.Message, "config", v)
	return x
}

// CreateSessionResponse returns the new session's ID.
type CreateSessionResponse struct{ *dynamicpb.Message }

// NewCreateSessionResponse returns an empty CreateSessionResponse.
func NewCreateSessionResponse() *CreateSessionResponse {
	return &CreateSessionResponse{dynamicpb.NewMessage(createSessionResponseDesc)}
}

func (x *CreateSessionResponse) msg() *dynamicpb.Message {
	if x == nil {
		return nil
	}
	return x.Message
}

// GetSessionId returns the session_id field.
func (x *CreateSessionResponse) GetSessionId() string { return getString(x.msg(), "session_id") }

// GetInitialResponse returns the initial_response field.
func (x *CreateSessionResponse) GetInitialResponse() string {
	return getString(x.msg(), "initial_response")
}

// SetSessionId sets the session_id field.
func (x *CreateSessionResponse) SetSessionId(v string) *CreateSessionResponse {
	setString(x.Message, "session_id", v)
	return x
}

// SetInitialResponse sets the initial_response field.
func (x *CreateSessionResponse) SetInitialResponse(v string) *CreateSessionResponse {
	setString(x.Message, "initial_response", v)
	return x
}

// AskRequest sends a prompt to a session.
type AskRequest struct{ *dynamicpb.Message }

// NewAskRequest returns an empty AskRequest.
func NewAskRequest() *AskRequest {
	return &AskRequest{dynamicpb.NewMessage(askRequestDesc)}
}

func (x *AskRequest) msg() *dynamicpb.Message {
	if x == nil {
		return nil
	}
	return x.Message
}

// GetSessionId returns the session_id field.
func (x *AskRequest) GetSessionId() string { return getString(x.msg(), "session_id") }

// GetPrompt returns the prompt field.
func (x *AskRequest) GetPrompt() string { return getString(x.msg(), "prompt") }

// SetSessionId sets the session_id field.
func (x *AskRequest) SetSessionId(v string) *AskRequest {
	setString(x.Message, "session_id", v)
	return x
}

// SetPrompt sets the prompt field.
func (x *AskRequest) SetPrompt(v string) *AskRequest {
	setString(x.Message, "prompt", v)
	return x
}

// AskResponse carries the agent's reply.
type AskResponse struct{ *dynamicpb.Message }

// NewAskResponse returns an empty AskResponse.
func NewAskResponse() *AskResponse {
	return &AskResponse{dynamicpb.NewMessage(askResponseDesc)}
}

func (x *AskResponse) msg() *dynamicpb.Message {
	if x == nil {
		return nil
	}
	return x.Message
}

// GetResponse returns the response field.
func (x *AskResponse) GetResponse() string { return getString(x.msg(), "response") }

// SetResponse sets the response field.
func (x *AskResponse) SetResponse(v string) *AskResponse {
	setString(x.Message, "response", v)
	return x
}

// DeleteSessionRequest names the session to remove.
type DeleteSessionRequest struct{ *dynamicpb.Message }

// NewDeleteSessionRequest returns an empty DeleteSessionRequest.
func NewDeleteSessionRequest() *DeleteSessionRequest {
	return &DeleteSessionRequest{dynamicpb.NewMessage(deleteSessionRequestDesc)}
}

func (x *DeleteSessionRequest) msg() *dynamicpb.Message {
	if x == nil {
		return nil
	}
	return x.Message
}

// GetSessionId returns the session_id field.
func (x *DeleteSessionRequest) GetSessionId() string { return getString(x.msg(), "session_id") }

// SetSessionId sets the session_id field.
func (x *DeleteSessionRequest) SetSessionId(v string) *DeleteSessionRequest {
	setString(x.Message, "session_id", v)
	return x
}

// DeleteSessionResponse echoes the removed session's ID.
type DeleteSessionResponse struct{ *dynamicpb.Message }

// NewDeleteSessionResponse returns an empty DeleteSessionResponse.
func NewDeleteSessionResponse() *DeleteSessionResponse {
	return &DeleteSessionResponse{dynamicpb.NewMessage(deleteSessionResponseDesc)}
}

func (x *DeleteSessionResponse) msg() *dynamicpb.Message {
	if x == nil {
		return nil
	}
	return x.Message
}

// GetSessionId returns the session_id field.
func (x *DeleteSessionResponse) GetSessionId() string { return getString(x.msg(), "session_id") }

// SetSessionId sets the session_id field.
func (x *DeleteSessionResponse) SetSessionId(v string) *DeleteSessionResponse {
	setString(x.Message, "session_id", v)
	return x
}
