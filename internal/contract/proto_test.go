// ABOUTME: Contract tests for the gRPC service surface to detect breaking API changes
// ABOUTME: Checks the ServiceDesc and the runtime descriptor against chatbot.proto

package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/reflect/protoreflect"

	pb "github.com/2389/chatbot-gateway/proto/chatbotpb"
)

// expectedMethods is the RPC contract. Removing or renaming a method breaks
// deployed clients.
var expectedMethods = map[string][2]string{
	"CreateSession": {"CreateSessionRequest", "CreateSessionResponse"},
	"Ask":           {"AskRequest", "AskResponse"},
	"DeleteSession": {"DeleteSessionRequest", "DeleteSessionResponse"},
}

func TestProtoSurface(t *testing.T) {
	desc := pb.ChatbotService_ServiceDesc
	assert.Equal(t, "chatbot.v1.ChatbotService", desc.ServiceName)
	assert.Empty(t, desc.Streams, "the service is unary only")

	actual := make([]string, 0, len(desc.Methods))
	for _, m := range desc.Methods {
		actual = append(actual, m.MethodName)
	}
	for method := range expectedMethods {
		assert.Contains(t, actual, method, "method /%s/%s should exist", desc.ServiceName, method)
	}
	for _, method := range actual {
		if _, ok := expectedMethods[method]; !ok {
			t.Logf("INFO: extra method %s/%s not in contract (consider adding)", desc.ServiceName, method)
		}
	}
}

func TestFullMethodNames(t *testing.T) {
	assert.Equal(t, "/chatbot.v1.ChatbotService/CreateSession", pb.ChatbotService_CreateSession_FullMethodName)
	assert.Equal(t, "/chatbot.v1.ChatbotService/Ask", pb.ChatbotService_Ask_FullMethodName)
	assert.Equal(t, "/chatbot.v1.ChatbotService/DeleteSession", pb.ChatbotService_DeleteSession_FullMethodName)
}

var (
	rpcPattern     = regexp.MustCompile(`rpc\s+(\w+)\s*\(\s*(\w+)\s*\)\s*returns\s*\(\s*(\w+)\s*\)`)
	messagePattern = regexp.MustCompile(`(?s)message\s+(\w+)\s*\{(.*?)\n\}`)
	fieldPattern   = regexp.MustCompile(`(?m)^\s*string\s+(\w+)\s*=\s*(\d+)\s*;`)
)

// TestDescriptorMatchesProtoFile guards the hand-assembled descriptor
// against drifting from the .proto source that clients generate from.
func TestDescriptorMatchesProtoFile(t *testing.T) {
	src, err := os.ReadFile(filepath.Join("..", "..", "proto", "chatbot", "v1", "chatbot.proto"))
	require.NoError(t, err)

	assert.Equal(t, protoreflect.FullName("chatbot.v1"), pb.File.Package())
	svc := pb.File.Services().ByName("ChatbotService")
	require.NotNil(t, svc)

	rpcs := rpcPattern.FindAllStringSubmatch(string(src), -1)
	require.Len(t, rpcs, svc.Methods().Len())
	for _, m := range rpcs {
		name, in, out := m[1], m[2], m[3]
		md := svc.Methods().ByName(protoreflect.Name(name))
		if !assert.NotNil(t, md, "rpc %s missing from descriptor", name) {
			continue
		}
		assert.Equal(t, in, string(md.Input().Name()), "rpc %s input", name)
		assert.Equal(t, out, string(md.Output().Name()), "rpc %s output", name)
		assert.Equal(t, expectedMethods[name], [2]string{in, out}, "rpc %s contract", name)
	}

	messages := messagePattern.FindAllStringSubmatch(string(src), -1)
	require.Len(t, messages, pb.File.Messages().Len())
	for _, m := range messages {
		md := pb.File.Messages().ByName(protoreflect.Name(m[1]))
		if !assert.NotNil(t, md, "message %s missing from descriptor", m[1]) {
			continue
		}

		var declared []string
		for _, f := range fieldPattern.FindAllStringSubmatch(m[2], -1) {
			declared = append(declared, fmt.Sprintf("%s=%s", f[1], f[2]))
		}
		var built []string
		for i := 0; i < md.Fields().Len(); i++ {
			fd := md.Fields().Get(i)
			assert.Equal(t, protoreflect.StringKind, fd.Kind(), "%s.%s kind", m[1], fd.Name())
			built = append(built, fmt.Sprintf("%s=%d", fd.Name(), fd.Number()))
		}
		slices.Sort(declared)
		slices.Sort(built)
		assert.Equal(t, declared, built, "fields of %s", m[1])
	}
}
