package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
)

type stubCompleter struct {
	reply string
	err   error
	calls int
	last  openai.ChatCompletionRequest
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.calls++
	s.last = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.reply}}},
	}, nil
}

func TestChatReplyWithoutKeyUsesCannedJokes(t *testing.T) {
	svc := NewChatService("", "", "", nil, nil)

	first, err := svc.Reply(context.Background(), ChatRequest{Message: "একটা জোক বলো", Language: "bn"})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}
	again, _ := svc.Reply(context.Background(), ChatRequest{Message: "একটা জোক বলো", Language: "bn"})
	if first.Source != ChatSourceStub || first.Reply == "" || first.Reply != again.Reply {
		t.Fatalf("expected deterministic stub reply, got %+v and %+v", first, again)
	}

	english, _ := svc.Reply(context.Background(), ChatRequest{Message: "tell me a joke", Language: "en"})
	found := false
	for _, joke := range cannedJokes["en"] {
		if joke == english.Reply {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an english joke, got %q", english.Reply)
	}
}

func TestChatReplyUsesModelWhenEnabled(t *testing.T) {
	stub := &stubCompleter{reply: "  হা হা!  "}
	svc := NewChatService("key", "", "", staticPolicy(Policy{ChatbotEnabled: true}), nil)
	svc.SetClient(stub)

	reply, err := svc.Reply(context.Background(), ChatRequest{Message: "hello"})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}
	if reply.Source != ChatSourceModel || reply.Reply != "হা হা!" {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if stub.last.Model != openai.GPT4oMini || len(stub.last.Messages) != 2 || stub.last.Messages[1].Content != "hello" {
		t.Fatalf("unexpected request %+v", stub.last)
	}
}

func TestChatReplyFallsBackOnProviderError(t *testing.T) {
	stub := &stubCompleter{err: errors.New("upstream down")}
	svc := NewChatService("key", "", "", nil, nil)
	svc.SetClient(stub)

	reply, err := svc.Reply(context.Background(), ChatRequest{Message: "hello", Language: "en"})
	if err != nil {
		t.Fatalf("provider errors must not reach the caller: %v", err)
	}
	if reply.Source != ChatSourceStub || stub.calls != 1 {
		t.Fatalf("expected stub fallback after one call, got %+v (calls=%d)", reply, stub.calls)
	}
}

func TestChatReplyRespectsDisabledPolicy(t *testing.T) {
	stub := &stubCompleter{reply: "model"}
	svc := NewChatService("key", "", "", staticPolicy(Policy{ChatbotEnabled: false}), nil)
	svc.SetClient(stub)

	reply, _ := svc.Reply(context.Background(), ChatRequest{Message: "hello"})
	if reply.Source != ChatSourceStub || stub.calls != 0 {
		t.Fatalf("disabled chatbot must not call the model")
	}
}

func TestChatReplyValidatesMessage(t *testing.T) {
	svc := NewChatService("", "", "", nil, nil)

	_, err := svc.Reply(context.Background(), ChatRequest{Message: "  "})
	requireKind(t, err, KindValidation)
	_, err = svc.Reply(context.Background(), ChatRequest{Message: strings.Repeat("a", MaxChatRunes+1)})
	requireKind(t, err, KindValidation)
}
