package main

import (
	"context"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/transcribeservice"
	"github.com/rs/zerolog"

	"github.com/ardf/serverless-auto-transcribe/internal/config"
	"github.com/ardf/serverless-auto-transcribe/internal/database"
	"github.com/ardf/serverless-auto-transcribe/internal/logger"
	"github.com/ardf/serverless-auto-transcribe/internal/notify"
	"github.com/ardf/serverless-auto-transcribe/internal/status"
)

const functionName = "TranscriptionStatusLambda"

type ledgerTable interface {
	database.DdbGetItem
	database.DdbUpdateItem
}

// newHandler wires the handler. db and queue may be nil when the matching
// setting is empty. jobs is only consulted when notifying without a ledger.
func newHandler(cfg config.Config, db ledgerTable, queue notify.SqsSendMessage, jobs status.GetTranscriptionJob, log zerolog.Logger) *status.Handler {
	opts := []status.Option{status.WithLogger(log)}
	if db != nil && cfg.TableName != "" {
		opts = append(opts, status.WithLedger(
			func(ctx context.Context, job, st string) error {
				return database.SetStatus(ctx, db, cfg.TableName, job, st)
			},
			func(ctx context.Context, job string) (database.JobRecord, error) {
				return database.GetRecord(ctx, db, cfg.TableName, job)
			},
		))
	}
	if queue != nil && cfg.NotifyQueueURL != "" {
		opts = append(opts, status.WithNotifier(func(ctx context.Context, msg notify.Message) error {
			return notify.Push(ctx, queue, cfg.NotifyQueueURL, msg)
		}))
		if (db == nil || cfg.TableName == "") && jobs != nil {
			opts = append(opts, status.WithOwnershipCheck(status.OwnedByPrefix(jobs, cfg.OutputPrefix)))
		}
	}
	return status.NewHandler(opts...)
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

	var db ledgerTable
	if cfg.TableName != "" {
		db = dynamodb.New(sess)
	}
	var queue notify.SqsSendMessage
	if cfg.NotifyQueueURL != "" {
		queue = sqs.New(sess)
	}
	handler := newHandler(cfg, db, queue, transcribeservice.New(sess), log)

	lambda.Start(handler.HandleRequest)
}
