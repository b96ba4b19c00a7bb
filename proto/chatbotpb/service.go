// ABOUTME: gRPC service descriptor, server registration, and typed client for ChatbotService
// ABOUTME: Handlers decode into pre-built dynamic messages so the default proto codec applies

package chatbotpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ChatbotService_CreateSession_FullMethodName = "/chatbot.v1.ChatbotService/CreateSession"
	ChatbotService_Ask_FullMethodName           = "/chatbot.v1.ChatbotService/Ask"
	ChatbotService_DeleteSession_FullMethodName = "/chatbot.v1.ChatbotService/DeleteSession"
)

// ChatbotServiceServer is the server API for ChatbotService.
type ChatbotServiceServer interface {
	CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error)
	Ask(context.Context, *AskRequest) (*AskResponse, error)
	DeleteSession(context.Context, *DeleteSessionRequest) (*DeleteSessionResponse, error)
}

// UnimplementedChatbotServiceServer can be embedded for forward compatibility.
type UnimplementedChatbotServiceServer struct{}

func (UnimplementedChatbotServiceServer) CreateSession(context.Context, *CreateSessionRequest) (*CreateSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateSession not implemented")
}

func (UnimplementedChatbotServiceServer) Ask(context.Context, *AskRequest) (*AskResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Ask not implemented")
}

func (UnimplementedChatbotServiceServer) DeleteSession(context.Context, *DeleteSessionRequest) (*DeleteSessionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteSession not implemented")
}

// RegisterChatbotServiceServer registers srv on s.
func RegisterChatbotServiceServer(s grpc.ServiceRegistrar, srv ChatbotServiceServer) {
	s.RegisterService(&ChatbotService_ServiceDesc, srv)
}

func _ChatbotService_CreateSession_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := NewCreateSessionRequest()
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatbotServiceServer).CreateSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ChatbotService_CreateSession_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatbotServiceServer).CreateSession(ctx, req.(*CreateSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ChatbotService_Ask_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := NewAskRequest()
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatbotServiceServer).Ask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ChatbotService_Ask_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatbotServiceServer).Ask(ctx, req.(*AskRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ChatbotService_DeleteSession_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := NewDeleteSessionRequest()
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ChatbotServiceServer).DeleteSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ChatbotService_DeleteSession_FullMethodName,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ChatbotServiceServer).DeleteSession(ctx, req.(*DeleteSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ChatbotService_ServiceDesc is the grpc.ServiceDesc for ChatbotService.
var ChatbotService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ChatbotServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: _ChatbotService_CreateSession_Handler},
		{MethodName: "Ask", Handler: _ChatbotService_Ask_Handler},
		{MethodName: "DeleteSession", Handler: _ChatbotService_DeleteSession_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: FileName,
}

// ChatbotServiceClient is the client API for ChatbotService.
type ChatbotServiceClient interface {
	CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error)
	Ask(ctx context.Context, in *AskRequest, opts ...grpc.CallOption) (*AskResponse, error)
	DeleteSession(ctx context.Context, in *DeleteSessionRequest, opts ...grpc.CallOption) (*DeleteSessionResponse, error)
}

type chatbotServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewChatbotServiceClient creates a client on cc.
func NewChatbotServiceClient(cc grpc.ClientConnInterface) ChatbotServiceClient {
	return &chatbotServiceClient{cc: cc}
}

func (c *chatbotServiceClient) CreateSession(ctx context.Context, in *CreateSessionRequest, opts ...grpc.CallOption) (*CreateSessionResponse, error) {
	out := NewCreateSessionResponse()
	if err := c.cc.Invoke(ctx, ChatbotService_CreateSession_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatbotServiceClient) Ask(ctx context.Context, in *AskRequest, opts ...grpc.CallOption) (*AskResponse, error) {
	out := NewAskResponse()
	if err := c.cc.Invoke(ctx, ChatbotService_Ask_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *chatbotServiceClient) DeleteSession(ctx context.Context, in *DeleteSessionRequest, opts ...grpc.CallOption) (*DeleteSessionResponse, error) {
	out := NewDeleteSessionResponse()
	if err := c.cc.Invoke(ctx, ChatbotService_DeleteSession_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
