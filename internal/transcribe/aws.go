package transcribe

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
)

// StartTranscriptionJob is the part of transcribeserviceiface.TranscribeServiceAPI
// the handler needs.
type StartTranscriptionJob interface {
	StartTranscriptionJobWithContext(ctx aws.Context, input *transcribeservice.StartTranscriptionJobInput, opts ...request.Option) (*transcribeservice.StartTranscriptionJobOutput, error)
}

// CallTranscribe submits req. Errors from the service are returned as is.
func CallTranscribe(ctx context.Context, svc StartTranscriptionJob, req JobRequest) error {
	params := &transcribeservice.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(req.JobName),
		Media: &transcribeservice.Media{
			MediaFileUri: aws.String(req.MediaFileURI),
		},
		MediaFormat:      aws.String(req.MediaFormat),
		LanguageCode:     aws.String(req.LanguageCode),
		OutputBucketName: aws.String(req.OutputBucket),
		OutputKey:        aws.String(req.OutputKey),
	}
	_, err := svc.StartTranscriptionJobWithContext(ctx, params)
	return err
}
