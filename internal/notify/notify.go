// Package notify publishes transcription job outcomes to an SQS queue.
package notify

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/sqs"
)

type Message struct {
	Job          string `json:"job"`
	Status       string `json:"status"`
	ResultBucket string `json:"result_bucket,omitempty"`
	ResultKey    string `json:"result_key,omitempty"`
}

type SqsSendMessage interface {
	SendMessageWithContext(ctx aws.Context, input *sqs.SendMessageInput, opts ...request.Option) (*sqs.SendMessageOutput, error)
}

func Push(ctx context.Context, svc SqsSendMessage, queueURL string, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = svc.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		MessageBody: aws.String(string(body)),
		QueueUrl:    aws.String(queueURL),
	})
	return err
}
