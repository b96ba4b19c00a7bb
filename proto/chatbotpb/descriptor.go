// ABOUTME: Builds and registers the chatbot.v1 file descriptor at init time
// ABOUTME: Mirrors proto/chatbot/v1/chatbot.proto so reflection and the proto codec work

package chatbotpb

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

const (
	// FileName is the registered path of the schema file.
	FileName = "chatbot/v1/chatbot.proto"

	// PackageName is the protobuf package.
	PackageName = "chatbot.v1"

	// ServiceName is the fully qualified service name.
	ServiceName = "chatbot.v1.ChatbotService"
)

// File is the chatbot.v1 file descriptor.
var File protoreflect.FileDescriptor

var (
	createSessionRequestDesc  protoreflect.MessageDescriptor
	createSessionResponseDesc protoreflect.MessageDescriptor
	askRequestDesc            protoreflect.MessageDescriptor
	askResponseDesc           protoreflect.MessageDescriptor
	deleteSessionRequestDesc  protoreflect.MessageDescriptor
	deleteSessionResponseDesc protoreflect.MessageDescriptor
)

func init() {
	fd, err := protodesc.NewFile(fileDescriptorProto(), protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("chatbotpb: building descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("chatbotpb: registering descriptor: %v", err))
	}
	File = fd

	msgs := fd.Messages()
	createSessionRequestDesc = msgs.ByName("CreateSessionRequest")
	createSessionResponseDesc = msgs.ByName("CreateSessionResponse")
	askRequestDesc = msgs.ByName("AskRequest")
	askResponseDesc = msgs.ByName("AskResponse")
	deleteSessionRequestDesc = msgs.ByName("DeleteSessionRequest")
	deleteSessionResponseDesc = msgs.ByName("DeleteSessionResponse")
}

func fileDescriptorProto() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String(FileName),
		Package: proto.String(PackageName),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/2389/chatbot-gateway/proto/chatbotpb"),
		},
		MessageType: []*descriptorpb.DescriptorProto{
			messageType("CreateSessionRequest", stringField("config", 1)),
			messageType("CreateSessionResponse", stringField("session_id", 1), stringField("initial_response", 2)),
			messageType("AskRequest", stringField("session_id", 1), stringField("prompt", 2)),
			messageType("AskResponse", stringField("response", 1)),
			messageType("DeleteSessionRequest", stringField("session_id", 1)),
			messageType("DeleteSessionResponse", stringField("session_id", 1)),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{
			{
				Name: proto.String("ChatbotService"),
				Method: []*descriptorpb.MethodDescriptorProto{
					unaryMethod("CreateSession", "CreateSessionRequest", "CreateSessionResponse"),
					unaryMethod("Ask", "AskRequest", "AskResponse"),
					unaryMethod("DeleteSession", "DeleteSessionRequest", "DeleteSessionResponse"),
				},
			},
		},
	}
}

func messageType(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{
		Name:  proto.String(name),
		Field: fields,
	}
}

func stringField(name string, number int32) *descriptorpb.FieldDescriptorProto {
	return &descriptorpb.FieldDescriptorProto{
		Name:     proto.String(name),
		Number:   proto.Int32(number),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
		JsonName: proto.String(jsonName(name)),
	}
}

func unaryMethod(name, input, output string) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + PackageName + "." + input),
		OutputType: proto.String("." + PackageName + "." + output),
	}
}

// jsonName converts snake_case to lowerCamelCase the way protoc does.
func jsonName(name string) string {
	out := make([]byte, 0, len(name))
	upper := false
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '_' {
			upper = true
			continue
		}
		if upper && 'a' <= c && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper = false
		out = append(out, c)
	}
	return string(out)
}
