package service

import (
	"context"
	"hash/fnv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bongbari/internal/locale"
	"github.com/bongbari/internal/logger"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// MaxChatRunes bounds a chatbot message.
	MaxChatRunes = 500

	ChatSourceModel = "model"
	ChatSourceStub  = "stub"

	chatSystemPrompt = "You are the Bong Bari comedy chatbot. Reply in one or two short, friendly, family-safe sentences with a light Bengali sense of humour. Answer in the language of the user's message."
	chatTimeout      = 20 * time.Second
)

var cannedJokes = map[string][]string{
	locale.LanguageBengali: {
		"মা বললেন ঘর গোছাও, আমি ফোনের গ্যালারি গুছিয়ে দিলাম। এখনও বকা খাচ্ছি।",
		"বাঙালির তিনটে ঋতু: গরম, বেশি গরম, আর ইলিশের মৌসুম।",
		"ডায়েট শুরু কাল থেকে। কালটা শুধু আসে না।",
		"পাশের বাড়ির কাকিমা জানেন আমার রেজাল্ট, আমি এখনও জানি না।",
	},
	locale.LanguageEnglish: {
		"My mom asked me to clean my room, so I cleaned my phone gallery. Still in trouble.",
		"Bengalis have three seasons: hot, hotter, and hilsa.",
		"The diet starts tomorrow. Tomorrow never shows up.",
		"The aunty next door knew my exam results before I did.",
	},
}

// ChatRequest is a message for the chatbot.
type ChatRequest struct {
	Message  string
	Language string
}

// ChatReply is the chatbot's answer and where it came from.
type ChatReply struct {
	Reply  string `json:"reply"`
	Source string `json:"source"`
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatService answers chatbot messages through an OpenAI compatible model,
// falling back to canned jokes.
type ChatService struct {
	client chatCompleter
	model  string
	policy PolicySource
	log    logger.Logger
}

// NewChatService builds a ChatService. An empty apiKey means stub replies
// only.
func NewChatService(apiKey, baseURL, model string, policy PolicySource, log logger.Logger) *ChatService {
	svc := &ChatService{model: strings.TrimSpace(model), policy: policy, log: logger.OrNop(log)}
	if svc.model == "" {
		svc.model = openai.GPT4oMini
	}
	if key := strings.TrimSpace(apiKey); key != "" {
		config := openai.DefaultConfig(key)
		if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
			config.BaseURL = base
		}
		svc.client = openai.NewClientWithConfig(config)
	}
	return svc
}

// SetClient replaces the completion client, mainly for tests.
func (s *ChatService) SetClient(client chatCompleter) {
	s.client = client
}

// Reply answers one message.
func (s *ChatService) Reply(ctx context.Context, req ChatRequest) (ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatReply{}, newError(KindValidation, locale.MsgTextRequired)
	}
	if utf8.RuneCountInString(message) > MaxChatRunes {
		return ChatReply{}, newError(KindValidation, locale.MsgTextTooLong, MaxChatRunes)
	}
	language := locale.OrDefault(req.Language)

	if !s.modelEnabled(ctx) {
		return cannedReply(message, language), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, chatTimeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
		Temperature: 0.8,
		MaxTokens:   120,
	})
	if err != nil {
		s.log.Warnf("chat completion failed, using canned reply: %v", err)
		return cannedReply(message, language), nil
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		s.log.Warnf("chat completion returned no content, using canned reply")
		return cannedReply(message, language), nil
	}

	return ChatReply{Reply: strings.TrimSpace(resp.Choices[0].Message.Content), Source: ChatSourceModel}, nil
}

func (s *ChatService) modelEnabled(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	if s.policy == nil {
		return true
	}
	policy, err := s.policy.GetPolicy(ctx)
	if err != nil {
		s.log.Warnf("load policy for chatbot failed: %v", err)
		return false
	}
	return policy.ChatbotEnabled
}

// cannedReply picks a joke deterministically from the message.
func cannedReply(message, language string) ChatReply {
	jokes := cannedJokes[language]
	if len(jokes) == 0 {
		jokes = cannedJokes[locale.LanguageBengali]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return ChatReply{Reply: jokes[int(h.Sum32()%uint32(len(jokes)))], Source: ChatSourceStub}
}
