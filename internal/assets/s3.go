/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package assets

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/friendsincode/ambientfm/internal/models"
)

// S3Config contains settings for the S3 resolver.
type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	Endpoint        string // for S3-compatible services (MinIO, Spaces, etc.)
	UsePathStyle    bool   // required for MinIO
	PresignTTL      time.Duration
}

// S3Resolver resolves playable URLs as presigned GET requests against
// S3-compatible object storage.
type S3Resolver struct {
	presigner *s3.PresignClient
	bucket    string
	ttl       time.Duration
	logger    zerolog.Logger
}

// NewS3Resolver creates an S3-backed resolver.
func NewS3Resolver(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Resolver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 resolver requires a bucket")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &S3Resolver{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		ttl:       ttl,
		logger:    logger.With().Str("component", "assets").Logger(),
	}, nil
}

// PlayableURL presigns a GET for the track's object key.
func (r *S3Resolver) PlayableURL(ctx context.Context, track models.Track) (string, error) {
	if track.StorageKey == "" {
		return "", fmt.Errorf("track %s has no storage key", track.ID)
	}

	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(track.StorageKey),
	}, s3.WithPresignExpires(r.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}

	r.logger.Debug().Str("track", track.ID).Str("key", track.StorageKey).Msg("presigned media url")
	return req.URL, nil
}
