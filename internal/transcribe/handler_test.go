package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTranscribe struct {
	mock.Mock
}

func (m *mockTranscribe) StartTranscriptionJobWithContext(ctx aws.Context, input *transcribeservice.StartTranscriptionJobInput, opts ...request.Option) (*transcribeservice.StartTranscriptionJobOutput, error) {
	args := m.Called(ctx, input)
	out, _ := args.Get(0).(*transcribeservice.StartTranscriptionJobOutput)
	return out, args.Error(1)
}

func (m *mockTranscribe) input(i int) *transcribeservice.StartTranscriptionJobInput {
	return m.Calls[i].Arguments.Get(1).(*transcribeservice.StartTranscriptionJobInput)
}

func newMockTranscribe() *mockTranscribe {
	m := &mockTranscribe{}
	m.On("StartTranscriptionJobWithContext", mock.Anything, mock.Anything).
		Return(&transcribeservice.StartTranscriptionJobOutput{}, nil)
	return m
}

func s3Event(bucket string, keys ...string) events.S3Event {
	var ev events.S3Event
	for _, key := range keys {
		ev.Records = append(ev.Records, events.S3EventRecord{
			EventSource: "aws:s3",
			EventName:   "ObjectCreated:Put",
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: bucket},
				Object: events.S3Object{Key: key},
			},
		})
	}
	return ev
}

func fixedToken(tok string) Option {
	return WithTokenSource(func() string { return tok })
}

func TestHandleRequestSubmitsJob(t *testing.T) {
	svc := newMockTranscribe()
	h := NewHandler(svc, fixedToken("1234"))

	resp, err := h.HandleRequest(context.Background(), s3Event("demo-auto-transcribe", "meeting.mp3"))
	require.NoError(t, err)

	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, `"Transcription function executed successfully."`, resp.Body)

	svc.AssertNumberOfCalls(t, "StartTranscriptionJobWithContext", 1)
	in := svc.input(0)
	assert.Equal(t, "meeting_1234", aws.StringValue(in.TranscriptionJobName))
	assert.Equal(t, "s3://demo-auto-transcribe/meeting.mp3", aws.StringValue(in.Media.MediaFileUri))
	assert.Equal(t, "mp3", aws.StringValue(in.MediaFormat))
	assert.Equal(t, "en-US", aws.StringValue(in.LanguageCode))
	assert.Equal(t, "demo-auto-transcribe", aws.StringValue(in.OutputBucketName))
	assert.Equal(t, "transcriptions/meeting_1234.json", aws.StringValue(in.OutputKey))
}

func TestHandleRequestEverySupportedFormat(t *testing.T) {
	for ext := range SupportedFormats {
		for _, key := range []string{"clip." + ext, "clip." + strings.ToUpper(ext)} {
			svc := newMockTranscribe()
			h := NewHandler(svc)

			_, err := h.HandleRequest(context.Background(), s3Event("bucket", key))
			require.NoError(t, err, key)

			svc.AssertNumberOfCalls(t, "StartTranscriptionJobWithContext", 1)
			assert.Equal(t, ext, aws.StringValue(svc.input(0).MediaFormat), key)
		}
	}
}

func TestHandleRequestSkipsUnsupported(t *testing.T) {
	svc := newMockTranscribe()
	h := NewHandler(svc)

	resp, err := h.HandleRequest(context.Background(), s3Event("bucket", "notes.txt", "noext", "trailing.", "song.ogg"))
	require.NoError(t, err)

	assert.Equal(t, successResponse(), resp)
	svc.AssertNotCalled(t, "StartTranscriptionJobWithContext", mock.Anything, mock.Anything)
}

func TestHandleRequestEmptyBatch(t *testing.T) {
	svc := newMockTranscribe()
	resp, err := NewHandler(svc).HandleRequest(context.Background(), events.S3Event{})
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandleRequestSanitizesJobName(t *testing.T) {
	svc := newMockTranscribe()
	h := NewHandler(svc, fixedToken("tok"))

	_, err := h.HandleRequest(context.Background(), s3Event("bucket", "my report.final.MOV"))
	require.NoError(t, err)

	in := svc.input(0)
	assert.Equal(t, "my_report_tok", aws.StringValue(in.TranscriptionJobName))
	assert.Equal(t, "mov", aws.StringValue(in.MediaFormat))
	assert.Equal(t, "s3://bucket/my report.final.MOV", aws.StringValue(in.Media.MediaFileUri))
	assert.Equal(t, "transcriptions/my_report_tok.json", aws.StringValue(in.OutputKey))
}

func TestHandleRequestUniqueJobNames(t *testing.T) {
	svc := newMockTranscribe()
	h := NewHandler(svc)

	for i := 0; i < 3; i++ {
		_, err := h.HandleRequest(context.Background(), s3Event("bucket", "meeting.mp3"))
		require.NoError(t, err)
	}

	names := map[string]bool{}
	for i := range svc.Calls {
		name := aws.StringValue(svc.input(i).TranscriptionJobName)
		assert.True(t, strings.HasPrefix(name, "meeting_"))
		assert.Regexp(t, validJobName, name)
		names[name] = true
	}
	assert.Len(t, names, 3)
}

func TestHandleRequestSubmissionErrorAbortsBatch(t *testing.T) {
	svc := &mockTranscribe{}
	conflict := awserr.New(transcribeservice.ErrCodeConflictException, "job already exists", nil)
	svc.On("StartTranscriptionJobWithContext", mock.Anything, mock.Anything).Return(nil, conflict)

	var buf bytes.Buffer
	h := NewHandler(svc, WithLogger(zerolog.New(&buf)))

	resp, err := h.HandleRequest(context.Background(), s3Event("bucket", "a.mp3", "b.wav"))
	require.Error(t, err)

	assert.Equal(t, conflict, err)
	assert.Equal(t, Response{}, resp)
	svc.AssertNumberOfCalls(t, "StartTranscriptionJobWithContext", 1)
	assert.Contains(t, buf.String(), "Error starting transcription job")
	assert.Contains(t, buf.String(), transcribeservice.ErrCodeConflictException)
}

func TestHandleRequestProcessesUntilFailure(t *testing.T) {
	svc := &mockTranscribe{}
	svc.On("StartTranscriptionJobWithContext", mock.Anything, mock.MatchedBy(func(in *transcribeservice.StartTranscriptionJobInput) bool {
		return aws.StringValue(in.MediaFormat) == "wav"
	})).Return(nil, errors.New("throttled"))
	svc.On("StartTranscriptionJobWithContext", mock.Anything, mock.Anything).
		Return(&transcribeservice.StartTranscriptionJobOutput{}, nil)

	h := NewHandler(svc)
	_, err := h.HandleRequest(context.Background(), s3Event("bucket", "a.mp3", "skip.txt", "b.wav", "c.flac"))
	require.EqualError(t, err, "throttled")

	svc.AssertNumberOfCalls(t, "StartTranscriptionJobWithContext", 2)
}

func TestHandleRequestMalformedRecord(t *testing.T) {
	svc := newMockTranscribe()
	h := NewHandler(svc)

	_, err := h.HandleRequest(context.Background(), s3Event("", "meeting.mp3"))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = h.HandleRequest(context.Background(), s3Event("bucket", ""))
	assert.ErrorIs(t, err, ErrMalformedRecord)

	svc.AssertNotCalled(t, "StartTranscriptionJobWithContext", mock.Anything, mock.Anything)
}

func TestHandleRequestRecordsJobs(t *testing.T) {
	svc := newMockTranscribe()
	var recorded []JobRequest
	h := NewHandler(svc, fixedToken("t"), WithRecorder(func(ctx context.Context, req JobRequest) error {
		recorded = append(recorded, req)
		return errors.New("table unavailable")
	}))

	_, err := h.HandleRequest(context.Background(), s3Event("bucket", "a.mp3", "b.txt", "c.wav"))
	require.NoError(t, err)

	require.Len(t, recorded, 2)
	assert.Equal(t, "a_t", recorded[0].JobName)
	assert.Equal(t, "c_t", recorded[1].JobName)
}

func TestHandleRequestLogsSkips(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(newMockTranscribe(), WithLogger(zerolog.New(&buf)), fixedToken("t"))

	_, err := h.HandleRequest(context.Background(), s3Event("bucket", "notes.txt", "talk.mp4"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Skipping transcription")
	assert.Contains(t, out, `"key":"notes.txt"`)
	assert.Contains(t, out, `"job":"talk_t"`)
}

func TestHandleRequestCustomSettings(t *testing.T) {
	svc := newMockTranscribe()
	h := NewHandler(svc, fixedToken("t"), WithSettings(JobSettings{LanguageCode: "es-US", OutputPrefix: "text/"}))

	_, err := h.HandleRequest(context.Background(), s3Event("bucket", "a.mp3"))
	require.NoError(t, err)

	in := svc.input(0)
	assert.Equal(t, "es-US", aws.StringValue(in.LanguageCode))
	assert.Equal(t, "text/a_t.json", aws.StringValue(in.OutputKey))
}

func TestHandleRequestDecodesNotificationKey(t *testing.T) {
	raw := `{"Records":[
		{"eventSource":"aws:s3","eventName":"ObjectCreated:Put",
		 "s3":{"bucket":{"name":"demo-auto-transcribe"},"object":{"key":"my+report.final.MOV"}}},
		{"eventSource":"aws:s3","eventName":"ObjectCreated:Put",
		 "s3":{"bucket":{"name":"demo-auto-transcribe"},"object":{"key":"calls/q1%20review.mp3"}}}
	]}`
	var ev events.S3Event
	require.NoError(t, json.Unmarshal([]byte(raw), &ev))

	svc := newMockTranscribe()
	h := NewHandler(svc, fixedToken("tok"))

	_, err := h.HandleRequest(context.Background(), ev)
	require.NoError(t, err)

	svc.AssertNumberOfCalls(t, "StartTranscriptionJobWithContext", 2)
	first := svc.input(0)
	assert.Equal(t, "s3://demo-auto-transcribe/my report.final.MOV", aws.StringValue(first.Media.MediaFileUri))
	assert.Equal(t, "my_report_tok", aws.StringValue(first.TranscriptionJobName))
	assert.Equal(t, "mov", aws.StringValue(first.MediaFormat))

	second := svc.input(1)
	assert.Equal(t, "s3://demo-auto-transcribe/calls/q1 review.mp3", aws.StringValue(second.Media.MediaFileUri))
	assert.Equal(t, "calls_q1_review_tok", aws.StringValue(second.TranscriptionJobName))
}
