// Package chatbotpb holds the chatbot.v1 wire types and gRPC bindings.
//
// The schema lives in proto/chatbot/v1/chatbot.proto. Instead of protoc
// output, the descriptor is assembled in descriptor.go and registered with
// the global registry, and the messages are dynamic messages behind typed
// wrappers. The wrappers satisfy proto.Message, so the default gRPC codec,
// server reflection and protojson all work as they would with generated code.
package chatbotpb
