package queue

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSClient sends and receives queue messages over Amazon SQS.
type SQSClient struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSClientFromEnv builds an SQS client from BL_SQS_QUEUE_URL.
// Returns nil when the queue is not configured.
func NewSQSClientFromEnv(ctx context.Context) (*SQSClient, error) {
	queueURL := strings.TrimSpace(os.Getenv("BL_SQS_QUEUE_URL"))
	if queueURL == "" {
		return nil, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SQSClient{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// Enqueue sends one message.
func (c *SQSClient) Enqueue(ctx context.Context, m Message) error {
	body, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(c.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("sqs send: %w", err)
	}
	return nil
}

// Received is one polled message with its receipt handle for deletion.
type Received struct {
	Message       Message
	ReceiptHandle string
}

// Receive long-polls for up to max messages.
func (c *SQSClient) Receive(ctx context.Context, max int32) ([]Received, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   300,
	})
	if err != nil {
		return nil, fmt.Errorf("sqs receive: %w", err)
	}

	var received []Received
	for _, raw := range out.Messages {
		if raw.Body == nil || raw.ReceiptHandle == nil {
			continue
		}
		m, err := Decode(*raw.Body)
		if err != nil {
			// Malformed messages are dropped after deletion so they
			// do not poison the queue.
			_ = c.Delete(ctx, *raw.ReceiptHandle)
			continue
		}
		received = append(received, Received{Message: m, ReceiptHandle: *raw.ReceiptHandle})
	}
	return received, nil
}

// Delete acknowledges a processed message.
func (c *SQSClient) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err != nil {
		return fmt.Errorf("sqs delete: %w", err)
	}
	return nil
}

var _ Client = (*SQSClient)(nil)
