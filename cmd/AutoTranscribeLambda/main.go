package main

import (
	"context"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/rs/zerolog"

	"github.com/ardf/serverless-auto-transcribe/internal/config"
	"github.com/ardf/serverless-auto-transcribe/internal/database"
	"github.com/ardf/serverless-auto-transcribe/internal/logger"
	"github.com/ardf/serverless-auto-transcribe/internal/transcribe"
)

const functionName = "AutoTranscribeLambda"

func recordFor(req transcribe.JobRequest, now time.Time) database.JobRecord {
	return database.JobRecord{
		Job:          req.JobName,
		JobStatus:    database.StatusInProgress,
		SourceURI:    req.MediaFileURI,
		MediaFormat:  req.MediaFormat,
		ResultBucket: req.OutputBucket,
		ResultKey:    req.OutputKey,
		SubmittedAt:  now.Unix(),
	}
}

// newHandler wires the handler. db may be nil when no ledger table is configured.
func newHandler(cfg config.Config, svc transcribe.StartTranscriptionJob, db database.DdbPutItem, log zerolog.Logger) *transcribe.Handler {
	opts := []transcribe.Option{
		transcribe.WithLogger(log),
		transcribe.WithSettings(transcribe.JobSettings{
			LanguageCode: cfg.LanguageCode,
			OutputPrefix: cfg.OutputPrefix,
		}),
	}
	if db != nil && cfg.TableName != "" {
		opts = append(opts, transcribe.WithRecorder(func(ctx context.Context, req transcribe.JobRequest) error {
			return database.CreateRecord(ctx, db, cfg.TableName, recordFor(req, time.Now()))
		}))
	}
	return transcribe.NewHandler(svc, opts...)
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		l := logger.New("info", "json", functionName)
		l.Fatal().Err(err).Msg("Unable to load configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, functionName)

	sess := session.Must(session.NewSessionWithOptions(session.Options{
		Config:            cfg.AWSConfig(),
		SharedConfigState: session.SharedConfigEnable,
	}))

	var db database.DdbPutItem
	if cfg.TableName != "" {
		db = dynamodb.New(sess)
	}
	handler := newHandler(cfg, transcribeservice.New(sess), db, log)

	lambda.Start(handler.HandleRequest)
}
