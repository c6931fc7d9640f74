// Package featurestore registers a SageMaker feature group and ingests the
// run record into its online and offline stores.
package featurestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	sagemakertypes "github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerfeaturestoreruntime"
	runtimetypes "github.com/aws/aws-sdk-go-v2/service/sagemakerfeaturestoreruntime/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/jonboulle/clockwork"

	"github.com/featurelabs/abalone-preprocess/internal/pipeline"
	"github.com/featurelabs/abalone-preprocess/internal/schema"
)

// RegistryAPI is the slice of the SageMaker control-plane client the
// publisher uses.
type RegistryAPI interface {
	CreateFeatureGroup(ctx context.Context, params *sagemaker.CreateFeatureGroupInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateFeatureGroupOutput, error)
	DescribeFeatureGroup(ctx context.Context, params *sagemaker.DescribeFeatureGroupInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeFeatureGroupOutput, error)
}

// IngestAPI is the slice of the feature-store runtime client the publisher
// uses.
type IngestAPI interface {
	PutRecord(ctx context.Context, params *sagemakerfeaturestoreruntime.PutRecordInput, optFns ...func(*sagemakerfeaturestoreruntime.Options)) (*sagemakerfeaturestoreruntime.PutRecordOutput, error)
}

// Options configures the publisher.
type Options struct {
	GroupName             string
	RecordIdentifierField string
	EventTimeField        string
	Description           string
	RoleARN               string
	OfflineStoreS3URI     string

	// ReadinessTimeout bounds the wait for the feature group to leave
	// Creating after registration.
	ReadinessTimeout time.Duration
	// ReadinessPollInterval is the delay between readiness checks.
	ReadinessPollInterval time.Duration
	// MaxPutAttempts bounds the PutRecord retry loop. Zero means 5.
	MaxPutAttempts uint
}

// Publisher drives registration, readiness, and ingestion.
type Publisher struct {
	registry RegistryAPI
	ingest   IngestAPI
	clock    clockwork.Clock
	log      *slog.Logger
	opts     Options
}

// New creates a Publisher. A nil clock means the real one.
func New(registry RegistryAPI, ingest IngestAPI, clock clockwork.Clock, opts Options, log *slog.Logger) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if opts.MaxPutAttempts == 0 {
		opts.MaxPutAttempts = 5
	}
	return &Publisher{
		registry: registry,
		ingest:   ingest,
		clock:    clock,
		log:      log,
		opts:     opts,
	}
}

// Register creates the feature group with the derived definition list.
// Creation is not idempotent, so it is deliberately not retried: a second
// run against an existing group surfaces the service error.
func (p *Publisher) Register(ctx context.Context, defs []schema.Column) error {
	featureDefs := make([]sagemakertypes.FeatureDefinition, 0, len(defs))
	for _, d := range defs {
		featureDefs = append(featureDefs, sagemakertypes.FeatureDefinition{
			FeatureName: aws.String(d.Name),
			FeatureType: featureType(d.Kind),
		})
	}

	p.log.Info("Registering feature group",
		slog.String("group", p.opts.GroupName),
		slog.Int("features", len(featureDefs)))

	_, err := p.registry.CreateFeatureGroup(ctx, &sagemaker.CreateFeatureGroupInput{
		FeatureGroupName:            aws.String(p.opts.GroupName),
		RecordIdentifierFeatureName: aws.String(p.opts.RecordIdentifierField),
		EventTimeFeatureName:        aws.String(p.opts.EventTimeField),
		FeatureDefinitions:          featureDefs,
		Description:                 aws.String(p.opts.Description),
		RoleArn:                     aws.String(p.opts.RoleARN),
		OnlineStoreConfig: &sagemakertypes.OnlineStoreConfig{
			EnableOnlineStore: aws.Bool(true),
		},
		OfflineStoreConfig: &sagemakertypes.OfflineStoreConfig{
			S3StorageConfig: &sagemakertypes.S3StorageConfig{
				S3Uri: aws.String(p.opts.OfflineStoreS3URI),
			},
		},
	})
	if err != nil {
		return pipeline.NewRemoteCallError("create_feature_group", "feature group registration failed", err).
			WithContext("group", p.opts.GroupName)
	}
	return nil
}

// AwaitReady polls the feature group status until it is Created, bounded
// by the configured timeout.
func (p *Publisher) AwaitReady(ctx context.Context) error {
	deadline := p.clock.Now().Add(p.opts.ReadinessTimeout)

	for {
		out, err := p.registry.DescribeFeatureGroup(ctx, &sagemaker.DescribeFeatureGroupInput{
			FeatureGroupName: aws.String(p.opts.GroupName),
		})
		if err != nil {
			return pipeline.NewRemoteCallError("await_feature_group", "failed to describe feature group", err).
				WithContext("group", p.opts.GroupName)
		}

		switch out.FeatureGroupStatus {
		case sagemakertypes.FeatureGroupStatusCreated:
			p.log.Info("Feature group ready", slog.String("group", p.opts.GroupName))
			return nil
		case sagemakertypes.FeatureGroupStatusCreateFailed:
			return pipeline.NewRemoteCallError("await_feature_group",
				fmt.Sprintf("feature group creation failed: %s", aws.ToString(out.FailureReason)), nil).
				WithContext("group", p.opts.GroupName)
		}

		if !p.clock.Now().Add(p.opts.ReadinessPollInterval).Before(deadline) {
			return pipeline.NewRemoteCallError("await_feature_group",
				fmt.Sprintf("feature group not ready within %s", p.opts.ReadinessTimeout), nil).
				WithContext("group", p.opts.GroupName).
				WithContext("status", string(out.FeatureGroupStatus))
		}

		p.log.Debug("Feature group not ready yet",
			slog.String("group", p.opts.GroupName),
			slog.String("status", string(out.FeatureGroupStatus)))

		select {
		case <-ctx.Done():
			return pipeline.NewRemoteCallError("await_feature_group", "readiness wait cancelled", ctx.Err())
		case <-p.clock.After(p.opts.ReadinessPollInterval):
		}
	}
}

// PutRecord ingests one record covering every declared feature. The write
// is keyed by record identifier and event time, so retrying it is safe.
func (p *Publisher) PutRecord(ctx context.Context, record []FeatureValue) error {
	values := make([]runtimetypes.FeatureValue, 0, len(record))
	for _, fv := range record {
		values = append(values, runtimetypes.FeatureValue{
			FeatureName:   aws.String(fv.Name),
			ValueAsString: aws.String(fv.Value),
		})
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			p.log.Warn("Retrying record ingestion", slog.Int("attempt", attempt))
		}
		_, err := p.ingest.PutRecord(ctx, &sagemakerfeaturestoreruntime.PutRecordInput{
			FeatureGroupName: aws.String(p.opts.GroupName),
			Record:           values,
		})
		return struct{}{}, err
	}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(p.opts.MaxPutAttempts))
	if err != nil {
		return pipeline.NewRemoteCallError("put_record", "record ingestion failed after retries", err).
			WithContext("group", p.opts.GroupName).
			WithContext("attempts", attempt)
	}

	p.log.Info("Ingested record", slog.String("group", p.opts.GroupName), slog.Int("features", len(record)))
	return nil
}

// Publish registers the feature group, waits for it to become ready, and
// ingests one record built from the given raw feature values and the
// current time.
func (p *Publisher) Publish(ctx context.Context, s schema.Schema, rawValues []string) error {
	defs := s.FeatureDefinitions(p.opts.EventTimeField)

	if err := p.Register(ctx, defs); err != nil {
		return err
	}
	if err := p.AwaitReady(ctx); err != nil {
		return err
	}

	record, err := BuildRecord(s, rawValues, p.opts.EventTimeField, p.clock.Now().Unix())
	if err != nil {
		return pipeline.NewRemoteCallError("put_record", "failed to build ingestion record", err)
	}
	return p.PutRecord(ctx, record)
}

func featureType(k schema.Kind) sagemakertypes.FeatureType {
	if k == schema.KindString {
		return sagemakertypes.FeatureTypeString
	}
	return sagemakertypes.FeatureTypeFractional
}
