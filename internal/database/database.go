package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
)

const StatusInProgress = "IN_PROGRESS"

var ErrRecordNotFound = errors.New("job record not found")

// JobRecord is one submitted transcription job, keyed by job name.
type JobRecord struct {
	Job          string `json:"job"`
	JobStatus    string `json:"job_status"`
	SourceURI    string `json:"source_uri"`
	MediaFormat  string `json:"media_format"`
	ResultBucket string `json:"result_bucket"`
	ResultKey    string `json:"result_key"`
	SubmittedAt  int64  `json:"submitted_at"`
}

type DdbPutItem interface {
	PutItemWithContext(ctx aws.Context, input *dynamodb.PutItemInput, opts ...request.Option) (*dynamodb.PutItemOutput, error)
}

type DdbGetItem interface {
	GetItemWithContext(ctx aws.Context, input *dynamodb.GetItemInput, opts ...request.Option) (*dynamodb.GetItemOutput, error)
}

type DdbUpdateItem interface {
	UpdateItemWithContext(ctx aws.Context, input *dynamodb.UpdateItemInput, opts ...request.Option) (*dynamodb.UpdateItemOutput, error)
}

func jobKey(job string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"job": {
			S: aws.String(job),
		},
	}
}

func CreateRecord(ctx context.Context, dbSvc DdbPutItem, table string, record JobRecord) error {
	av, err := dynamodbattribute.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", record.Job, err)
	}

	input := &dynamodb.PutItemInput{
		Item:      av,
		TableName: aws.String(table),
	}
	_, err = dbSvc.PutItemWithContext(ctx, input)
	return err
}

func GetRecord(ctx context.Context, dbSvc DdbGetItem, table string, job string) (JobRecord, error) {
	var rec JobRecord
	result, err := dbSvc.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       jobKey(job),
	})
	if err != nil {
		return rec, err
	}
	if len(result.Item) == 0 {
		return rec, fmt.Errorf("%w: %s", ErrRecordNotFound, job)
	}
	if err := dynamodbattribute.UnmarshalMap(result.Item, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal job %s: %w", job, err)
	}
	return rec, nil
}

// SetStatus updates the status of an existing record. Jobs that were never
// recorded yield ErrRecordNotFound rather than a new partial item.
func SetStatus(ctx context.Context, dbSvc DdbUpdateItem, table string, job string, status string) error {
	input := &dynamodb.UpdateItemInput{
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":s": {
				S: aws.String(status),
			},
		},
		TableName:           aws.String(table),
		Key:                 jobKey(job),
		ConditionExpression: aws.String("attribute_exists(job)"),
		ReturnValues:        aws.String(dynamodb.ReturnValueUpdatedNew),
		UpdateExpression:    aws.String("set job_status = :s"),
	}
	_, err := dbSvc.UpdateItemWithContext(ctx, input)
	if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, job)
	}
	return err
}
