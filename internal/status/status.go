// Package status reacts to Amazon Transcribe job state change events.
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/rs/zerolog"

	"github.com/ardf/serverless-auto-transcribe/internal/database"
	"github.com/ardf/serverless-auto-transcribe/internal/notify"
)

var ErrMalformedEvent = errors.New("malformed transcribe state change event")

// Detail is the detail section of a "Transcribe Job State Change" event.
type Detail struct {
	TranscriptionJobName   string `json:"TranscriptionJobName"`
	TranscriptionJobStatus string `json:"TranscriptionJobStatus"`
	FailureReason          string `json:"FailureReason,omitempty"`
}

type UpdateJobStatusFunc func(ctx context.Context, job string, status string) error
type LookupJobFunc func(ctx context.Context, job string) (database.JobRecord, error)
type PushMessageFunc func(ctx context.Context, msg notify.Message) error
type OwnsJobFunc func(ctx context.Context, job string) (bool, error)

// Handler records job state changes and announces finished jobs.
// Every collaborator is optional.
type Handler struct {
	updateJobStatus UpdateJobStatusFunc
	lookupJob       LookupJobFunc
	pushMessage     PushMessageFunc
	ownsJob         OwnsJobFunc
	log             zerolog.Logger
}

type Option func(*Handler)

func WithLedger(update UpdateJobStatusFunc, lookup LookupJobFunc) Option {
	return func(h *Handler) {
		h.updateJobStatus = update
		h.lookupJob = lookup
	}
}

func WithNotifier(push PushMessageFunc) Option {
	return func(h *Handler) { h.pushMessage = push }
}

// WithOwnershipCheck filters events when no ledger is configured. Events for
// jobs fn does not claim are dropped. A ledger takes precedence.
func WithOwnershipCheck(fn OwnsJobFunc) Option {
	return func(h *Handler) { h.ownsJob = fn }
}

func WithLogger(l zerolog.Logger) Option {
	return func(h *Handler) { h.log = l }
}

func NewHandler(opts ...Option) *Handler {
	h := &Handler{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func ParseDetail(event events.CloudWatchEvent) (Detail, error) {
	var d Detail
	if err := json.Unmarshal(event.Detail, &d); err != nil {
		return d, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if d.TranscriptionJobName == "" || d.TranscriptionJobStatus == "" {
		return d, fmt.Errorf("%w: missing job name or status", ErrMalformedEvent)
	}
	return d, nil
}

func IsTerminal(status string) bool {
	return status == transcribeservice.TranscriptionJobStatusCompleted ||
		status == transcribeservice.TranscriptionJobStatusFailed
}

func (h *Handler) HandleRequest(ctx context.Context, event events.CloudWatchEvent) error {
	d, err := ParseDetail(event)
	if err != nil {
		h.log.Error().Err(err).Str("id", event.ID).Msg("Rejecting event")
		return err
	}
	log := h.log.With().Str("job", d.TranscriptionJobName).Str("status", d.TranscriptionJobStatus).Logger()

	if h.updateJobStatus == nil && h.ownsJob != nil {
		owned, err := h.ownsJob(ctx, d.TranscriptionJobName)
		if err != nil {
			log.Error().Err(err).Msg("Unable to look up transcription job")
			return err
		}
		if !owned {
			log.Info().Msg("Job was not submitted by this function, ignoring")
			return nil
		}
	}
	if h.updateJobStatus != nil {
		err := h.updateJobStatus(ctx, d.TranscriptionJobName, d.TranscriptionJobStatus)
		switch {
		case errors.Is(err, database.ErrRecordNotFound):
			log.Info().Msg("Job was not submitted by this function, ignoring")
			return nil
		case err != nil:
			log.Error().Err(err).Msg("Unable to update job status")
			return err
		}
	}
	log.Info().Str("reason", d.FailureReason).Msg("Job status updated")

	if h.pushMessage == nil || !IsTerminal(d.TranscriptionJobStatus) {
		return nil
	}
	msg := notify.Message{Job: d.TranscriptionJobName, Status: d.TranscriptionJobStatus}
	if h.lookupJob != nil {
		if rec, err := h.lookupJob(ctx, d.TranscriptionJobName); err == nil {
			msg.ResultBucket = rec.ResultBucket
			msg.ResultKey = rec.ResultKey
		} else {
			log.Warn().Err(err).Msg("Unable to read job record")
		}
	}
	if err := h.pushMessage(ctx, msg); err != nil {
		log.Error().Err(err).Msg("Unable to push notification")
		return err
	}
	return nil
}
