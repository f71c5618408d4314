package oracle

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// Bedrock invokes a model through the Amazon Bedrock Converse API.
// Region and credentials resolve from the standard AWS chain.
type Bedrock struct {
	client      *bedrockruntime.Client
	model       string
	maxTokens   int32
	temperature float32
}

// NewBedrock builds a Bedrock-backed oracle. REDTAPE_BEDROCK_ACCESS_KEY
// and REDTAPE_BEDROCK_SECRET_KEY, when both set, override the default
// credential chain.
func NewBedrock(ctx context.Context, model string, maxTokens int, temperature float64) (*Bedrock, error) {
	if model == "" {
		return nil, fmt.Errorf("bedrock backend needs a model id: %w", ErrUnavailable)
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var opts []func(*awsconfig.LoadOptions) error
	if ak, sk := os.Getenv("REDTAPE_BEDROCK_ACCESS_KEY"), os.Getenv("REDTAPE_BEDROCK_SECRET_KEY"); ak != "" && sk != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ak, sk, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Bedrock{
		client:      bedrockruntime.NewFromConfig(cfg),
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: float32(temperature),
	}, nil
}

// Invoke sends the prompt through Converse and concatenates the text
// blocks of the reply.
func (b *Bedrock) Invoke(ctx context.Context, p Prompt) (Reply, error) {
	out, err := b.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.model),
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: p.System},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: p.User},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(b.maxTokens),
			Temperature: aws.Float32(b.temperature),
		},
	})
	if err != nil {
		return Reply{}, fmt.Errorf("bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return Reply{}, fmt.Errorf("empty bedrock response")
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if sb.Len() == 0 {
		return Reply{}, fmt.Errorf("empty bedrock response")
	}

	return Reply{Text: strings.TrimSpace(sb.String())}, nil
}
