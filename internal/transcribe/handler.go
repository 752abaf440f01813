package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/rs/zerolog"
)

const ConfirmationMessage = "Transcription function executed successfully."

// ErrMalformedRecord is returned when a notification record lacks the
// bucket name or object key.
var ErrMalformedRecord = errors.New("malformed notification record")

// Response is returned to Lambda once every record has been handled.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

func successResponse() Response {
	body, _ := json.Marshal(ConfirmationMessage)
	return Response{StatusCode: http.StatusOK, Body: string(body)}
}

// objectKey prefers the percent-decoded key that events.S3Object fills in
// when the notification is unmarshalled. Hand-built events only carry Key.
func objectKey(obj events.S3Object) string {
	if obj.URLDecodedKey != "" {
		return obj.URLDecodedKey
	}
	return obj.Key
}

type JobFunc func(ctx context.Context, req JobRequest) error

// Handler turns S3 object-created notifications into transcription jobs.
type Handler struct {
	startTranscribe JobFunc
	recordJob       JobFunc
	newToken        func() string
	settings        JobSettings
	log             zerolog.Logger
}

type Option func(*Handler)

// WithRecorder registers a function called after each successful submission.
// Its failures are logged but do not fail the invocation.
func WithRecorder(fn JobFunc) Option {
	return func(h *Handler) { h.recordJob = fn }
}

func WithTokenSource(fn func() string) Option {
	return func(h *Handler) { h.newToken = fn }
}

func WithSettings(s JobSettings) Option {
	return func(h *Handler) { h.settings = s }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// NewHandler returns a Handler submitting jobs through svc.
func NewHandler(svc StartTranscriptionJob, opts ...Option) *Handler {
	h := &Handler{
		startTranscribe: func(ctx context.Context, req JobRequest) error {
			return CallTranscribe(ctx, svc, req)
		},
		newToken: NewToken,
		settings: DefaultJobSettings(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleRequest processes the records in order. The first submission
// failure is returned immediately and the remaining records are left for
// the platform to redeliver.
func (h *Handler) HandleRequest(ctx context.Context, event events.S3Event) (Response, error) {
	for i, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := objectKey(record.S3.Object)
		if bucket == "" || key == "" {
			err := fmt.Errorf("%w: record %d: bucket=%q key=%q", ErrMalformedRecord, i, bucket, key)
			h.log.Error().Err(err).Msg("Rejecting notification")
			return Response{}, err
		}

		ext := Extension(key)
		if !IsSupported(ext) {
			h.log.Info().Str("key", key).Str("format", ext).Msg("File is not a supported format. Skipping transcription.")
			continue
		}
		h.log.Info().Str("key", key).Str("format", ext).Msg("File is a supported format")

		req := h.settings.NewJobRequest(bucket, key, h.newToken())
		if err := h.startTranscribe(ctx, req); err != nil {
			ev := h.log.Error().Err(err).Str("job", req.JobName)
			if aerr, ok := err.(awserr.Error); ok {
				ev = ev.Str("code", aerr.Code())
			}
			ev.Msg("Error starting transcription job")
			return Response{}, err
		}
		h.log.Info().Str("job", req.JobName).Msg("Transcription job started successfully")

		if h.recordJob != nil {
			if err := h.recordJob(ctx, req); err != nil {
				h.log.Warn().Err(err).Str("job", req.JobName).Msg("Unable to record transcription job")
			}
		}
	}
	return successResponse(), nil
}
