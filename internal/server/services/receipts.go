package services

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/cadete/internal/common"
	"github.com/dmitrijs2005/cadete/internal/dbx"
	"github.com/dmitrijs2005/cadete/internal/server/models"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ReceiptURL is a presigned URL for one receipt object.
type ReceiptURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

func receiptStorageKey(expenseID string, now time.Time) string {
	return fmt.Sprintf("receipts/%d/%02d/%s/%v", now.Year(), now.Month(), expenseID, uuid.New())
}

func (s *ExpenseService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	if s.config.S3Bucket == "" {
		return nil, common.ErrStorageNotReady
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

// ReceiptUploadURL returns a URL the caller can PUT the receipt of expense id
// to. Each call points the expense at a fresh object key, replacing any
// previous receipt.
func (s *ExpenseService) ReceiptUploadURL(ctx context.Context, user *models.User, id string) (*ReceiptURL, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	var out *ReceiptURL
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		e, err := guardFor(s.repomanager, tx).Expense(ctx, user, id)
		if err != nil {
			return err
		}

		presignClient, err := s.getPresignClient(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		bucket := s.config.S3Bucket
		key := receiptStorageKey(e.ID, now)

		req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
			Bucket: &bucket,
			Key:    &key,
		}, s3.WithPresignExpires(s.config.S3PresignTTL))
		if err != nil {
			return fmt.Errorf("error presigning upload: %w", err)
		}

		if err := s.repomanager.Expenses(tx).SetReceiptKey(ctx, e.ID, key); err != nil {
			return err
		}

		out = &ReceiptURL{URL: req.URL, Method: req.Method, ExpiresAt: now.Add(s.config.S3PresignTTL)}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return out, nil
}

// ReceiptDownloadURL returns a URL to GET the receipt of expense id, or
// common.ErrorNotFound when none was uploaded.
func (s *ExpenseService) ReceiptDownloadURL(ctx context.Context, user *models.User, id string) (*ReceiptURL, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	e, err := guardFor(s.repomanager, s.db).Expense(ctx, user, id)
	if err != nil {
		return nil, storageErr(err)
	}
	if !e.HasReceipt() {
		return nil, common.ErrorNotFound
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    e.ReceiptKey,
	}, s3.WithPresignExpires(s.config.S3PresignTTL))
	if err != nil {
		return nil, fmt.Errorf("error presigning download: %w", err)
	}

	return &ReceiptURL{URL: req.URL, Method: req.Method, ExpiresAt: s.now().Add(s.config.S3PresignTTL)}, nil
}
