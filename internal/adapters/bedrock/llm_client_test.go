package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/config"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/core"
	"github.com/swarnavarsha1/gmail-outlook-automation/internal/utils"
	"go.uber.org/zap"
)

type fakeRuntime struct {
	inputs    []*bedrockruntime.InvokeModelInput
	responses [][]byte
	err       error
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	body := f.responses[0]
	f.responses = f.responses[1:]
	return &bedrockruntime.InvokeModelOutput{Body: body}, nil
}

func newTestClient(rt *fakeRuntime, modelID string) *BedrockClient {
	logger := zap.NewNop()
	return NewBedrockClient(rt, config.BedrockConfig{
		ModelID:          modelID,
		EmbeddingModelID: "amazon.titan-embed-text-v2:0",
		MaxTokens:        512,
		Temperature:      0.2,
		TopP:             0.9,
		MaxBodySize:      8192,
	}, logger, utils.NewTextProcessor(logger))
}

var chatPrompt = core.Prompt{
	System: "You are a support agent.",
	Messages: []core.Message{
		{Role: core.RoleUser, Content: "Where is truck 42?"},
		{Role: core.RoleAssistant, Content: "Checking."},
		{Role: core.RoleUser, Content: "Thanks"},
	},
}

func TestGenerateClaudeMessages(t *testing.T) {
	rt := &fakeRuntime{responses: [][]byte{
		[]byte(`{"content":[{"type":"text","text":"Truck 42 is "},{"type":"text","text":"in Leeds."}],"stop_reason":"end_turn"}`),
	}}
	client := newTestClient(rt, "us.anthropic.claude-3-haiku-20240307-v1:0")

	reply, err := client.Generate(context.Background(), chatPrompt)
	require.NoError(t, err)
	assert.Equal(t, "Truck 42 is in Leeds.", reply)

	require.Len(t, rt.inputs, 1)
	assert.Equal(t, "us.anthropic.claude-3-haiku-20240307-v1:0", aws.ToString(rt.inputs[0].ModelId))
	assert.Equal(t, "application/json", aws.ToString(rt.inputs[0].ContentType))

	var req claudeRequest
	require.NoError(t, json.Unmarshal(rt.inputs[0].Body, &req))
	assert.Equal(t, anthropicVersion, req.AnthropicVersion)
	assert.Equal(t, "You are a support agent.", req.System)
	assert.Equal(t, 512, req.MaxTokens)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "Thanks", req.Messages[2].Content)
}

func TestGenerateClaudeEmpty(t *testing.T) {
	rt := &fakeRuntime{responses: [][]byte{[]byte(`{"content":[]}`)}}
	client := newTestClient(rt, "anthropic.claude-3-haiku-20240307-v1:0")

	_, err := client.Generate(context.Background(), chatPrompt)
	assert.ErrorContains(t, err, "empty response from Claude model")
}

func TestGenerateTitan(t *testing.T) {
	rt := &fakeRuntime{responses: [][]byte{[]byte(`{"results":[{"outputText":"  Hello  "}]}`)}}
	client := newTestClient(rt, "amazon.titan-text-express-v1")

	reply, err := client.Generate(context.Background(), chatPrompt)
	require.NoError(t, err)
	assert.Equal(t, "Hello", reply)

	var req struct {
		InputText string `json:"inputText"`
	}
	require.NoError(t, json.Unmarshal(rt.inputs[0].Body, &req))
	assert.Equal(t,
		"You are a support agent.\n\nUser: Where is truck 42?\n\nAssistant: Checking.\n\nUser: Thanks\n\nAssistant:",
		req.InputText)
}

func TestGenerateGenericFallsBackToRawBody(t *testing.T) {
	rt := &fakeRuntime{responses: [][]byte{
		[]byte(`{"generation":"from llama"}`),
		[]byte(`{"unknown":"shape"}`),
	}}
	client := newTestClient(rt, "meta.llama3-8b-instruct-v1:0")

	reply, err := client.Generate(context.Background(), chatPrompt)
	require.NoError(t, err)
	assert.Equal(t, "from llama", reply)

	reply, err = client.Generate(context.Background(), chatPrompt)
	require.NoError(t, err)
	assert.Equal(t, `{"unknown":"shape"}`, reply)
}

func TestGenerateInvokeError(t *testing.T) {
	rt := &fakeRuntime{err: errors.New("throttled")}
	client := newTestClient(rt, "anthropic.claude-3-haiku-20240307-v1:0")

	_, err := client.Generate(context.Background(), chatPrompt)
	assert.ErrorContains(t, err, "failed to invoke Bedrock model: throttled")
}

func TestEmbed(t *testing.T) {
	rt := &fakeRuntime{responses: [][]byte{
		[]byte(`{"embedding":[0.1,0.2]}`),
		[]byte(`{"embedding":[0.3,0.4]}`),
	}}
	client := newTestClient(rt, "anthropic.claude-3-haiku-20240307-v1:0")

	vectors, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vectors)

	require.Len(t, rt.inputs, 2)
	assert.Equal(t, "amazon.titan-embed-text-v2:0", aws.ToString(rt.inputs[1].ModelId))
	assert.JSONEq(t, `{"inputText":"b"}`, string(rt.inputs[1].Body))
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	rt := &fakeRuntime{responses: [][]byte{[]byte(`{"embedding":[]}`)}}
	client := newTestClient(rt, "anthropic.claude-3-haiku-20240307-v1:0")

	_, err := client.Embed(context.Background(), []string{"a"})
	assert.ErrorContains(t, err, "empty embedding")
}
