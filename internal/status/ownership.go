package status

import (
	"context"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/google/uuid"
)

type GetTranscriptionJob interface {
	GetTranscriptionJobWithContext(ctx aws.Context, input *transcribeservice.GetTranscriptionJobInput, opts ...request.Option) (*transcribeservice.GetTranscriptionJobOutput, error)
}

// OwnedByPrefix claims jobs whose transcript was written to
// {prefix}{job}.json. Jobs without a transcript location, such as failed
// ones, are claimed when the name ends in the "_<uuid>" token this
// function appends.
func OwnedByPrefix(svc GetTranscriptionJob, prefix string) OwnsJobFunc {
	return func(ctx context.Context, job string) (bool, error) {
		out, err := svc.GetTranscriptionJobWithContext(ctx, &transcribeservice.GetTranscriptionJobInput{
			TranscriptionJobName: aws.String(job),
		})
		if err != nil {
			return false, err
		}
		if tj := out.TranscriptionJob; tj != nil && tj.Transcript != nil && aws.StringValue(tj.Transcript.TranscriptFileUri) != "" {
			u, err := url.Parse(aws.StringValue(tj.Transcript.TranscriptFileUri))
			if err != nil {
				return false, nil
			}
			return strings.HasSuffix(u.Path, "/"+prefix+job+".json"), nil
		}
		return HasJobToken(job), nil
	}
}

// HasJobToken reports whether job ends in "_" followed by a UUID.
func HasJobToken(job string) bool {
	const tokenLen = 36
	if len(job) < tokenLen+1 || job[len(job)-tokenLen-1] != '_' {
		return false
	}
	_, err := uuid.Parse(job[len(job)-tokenLen:])
	return err == nil
}
