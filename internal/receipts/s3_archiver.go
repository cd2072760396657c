// Package receipts archives a receipt document per committed claim to object
// storage. Generation is post-commit and best-effort; a failed upload never
// invalidates the claim.
package receipts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/garageops/reserva/internal/domain"
)

// S3Archiver writes receipt JSON to paths like:
//
//	s3://<bucket>/<prefix>/YYYY/MM/DD/<claimID>.json
type S3Archiver struct {
	bucket   string
	prefix   string
	uploader *manager.Uploader
}

// NewS3Archiver creates an archiver. Region and credentials come from the
// environment (AWS_REGION, AWS_PROFILE, key pair, etc.).
func NewS3Archiver(ctx context.Context, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Archiver{
		bucket:   bucket,
		prefix:   prefix,
		uploader: manager.NewUploader(client),
	}, nil
}

type receipt struct {
	ClaimID    string          `json:"claimId"`
	Kind       string          `json:"kind"`
	TicketNo   int             `json:"ticketNo,omitempty"`
	ResourceID string          `json:"resourceId,omitempty"`
	Start      *time.Time      `json:"start,omitempty"`
	End        *time.Time      `json:"end,omitempty"`
	Claimant   domain.Claimant `json:"claimant"`
	Amount     int64           `json:"amount"`
	Currency   string          `json:"currency"`
	IssuedAt   time.Time       `json:"issuedAt"`
}

// ClaimCommitted renders and uploads the receipt for one claim.
func (a *S3Archiver) ClaimCommitted(ctx context.Context, claim domain.Claim) error {
	r := receipt{
		ClaimID:    claim.ID.String(),
		Kind:       string(claim.Kind),
		TicketNo:   claim.TicketNo,
		ResourceID: claim.ResourceID,
		Claimant:   claim.Claimant,
		Amount:     claim.Amount,
		Currency:   claim.Currency,
		IssuedAt:   time.Now().UTC(),
	}
	if claim.Kind == domain.ClaimKindBooking {
		start, end := claim.Start, claim.End
		r.Start, r.End = &start, &end
	}

	body, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal receipt: %w", err)
	}

	ts := claim.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	key := path.Join(a.prefix,
		fmt.Sprintf("%04d/%02d/%02d", ts.Year(), ts.Month(), ts.Day()),
		claim.ID.String()+".json")

	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload receipt %s: %w", key, err)
	}
	return nil
}
