package transcribe

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultLanguageCode = "en-US"
	DefaultOutputPrefix = "transcriptions/"
)

// JobRequest is everything needed to start one transcription job.
type JobRequest struct {
	JobName      string
	MediaFileURI string
	MediaFormat  string
	LanguageCode string
	OutputBucket string
	OutputKey    string
}

type JobSettings struct {
	LanguageCode string
	OutputPrefix string
}

func DefaultJobSettings() JobSettings {
	return JobSettings{
		LanguageCode: DefaultLanguageCode,
		OutputPrefix: DefaultOutputPrefix,
	}
}

// NewJobRequest builds the request for an object whose extension is
// already known to be supported. The transcript is written back to the
// source bucket under the output prefix.
func (s JobSettings) NewJobRequest(bucket, key, token string) JobRequest {
	jobName := MakeJobName(BaseName(key), token)
	return JobRequest{
		JobName:      jobName,
		MediaFileURI: fmt.Sprintf("s3://%s/%s", bucket, key),
		MediaFormat:  Extension(key),
		LanguageCode: s.LanguageCode,
		OutputBucket: bucket,
		OutputKey:    s.OutputPrefix + jobName + ".json",
	}
}

// NewToken returns a random UUID used to keep job names unique.
func NewToken() string {
	return uuid.NewString()
}

func MakeJobName(base string, token string) string {
	return SanitizeJobName(base + "_" + token)
}

// SanitizeJobName replaces every character outside [0-9a-zA-Z._-] with '_'.
func SanitizeJobName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z',
			r == '.', r == '_', r == '-':
			return r
		}
		return '_'
	}, name)
}
