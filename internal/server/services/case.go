package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dverbovs/casekeeper/internal/common"
	"github.com/dverbovs/casekeeper/internal/models"
	sc "github.com/dverbovs/casekeeper/internal/server/config"
	"github.com/dverbovs/casekeeper/internal/server/feed"
	"github.com/dverbovs/casekeeper/internal/server/repositories/repomanager"
)

// Seams for the AWS SDK so the presign flow is testable without network.
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
)

// CaseService owns every case mutation on the server: it writes through
// the repositories, cascades report deletion, and broadcasts the owner's
// fresh snapshot to the change feed after each change.
type CaseService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hub         *feed.Hub
	config      *sc.Config
}

func NewCaseService(db *sql.DB, m repomanager.RepositoryManager, hub *feed.Hub, cfg *sc.Config) *CaseService {
	return &CaseService{db: db, repomanager: m, hub: hub, config: cfg}
}

func (s *CaseService) List(ctx context.Context, ownerID string) ([]models.Case, error) {
	return s.repomanager.Cases(s.db).ListByOwner(ctx, ownerID)
}

func (s *CaseService) Create(ctx context.Context, ownerID string, c models.Case) (*models.Case, error) {
	if c.ID == "" || c.Name == "" {
		return nil, common.ErrorValidation
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	if err := s.repomanager.Cases(s.db).Create(ctx, ownerID, c); err != nil {
		return nil, err
	}

	s.notify(ctx, ownerID)
	return &c, nil
}

func (s *CaseService) Update(ctx context.Context, ownerID string, c models.Case) (*models.Case, error) {
	if c.ID == "" {
		return nil, common.ErrorValidation
	}
	repo := s.repomanager.Cases(s.db)

	stored, err := repo.Get(ctx, ownerID, c.ID)
	if err != nil {
		return nil, err
	}
	merged := models.Merge(*stored, c)
	if merged.UpdatedAt.Equal(stored.UpdatedAt) {
		merged.UpdatedAt = time.Now().UTC()
	}

	if err := repo.Update(ctx, ownerID, merged); err != nil {
		return nil, err
	}

	s.notify(ctx, ownerID)
	return &merged, nil
}

// Delete removes a case and its reports. Deleting an absent case yields
// common.ErrorNotFound so the client can release its tombstone.
func (s *CaseService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.repomanager.Reports(s.db).DeleteByCase(ctx, id); err != nil {
		return err
	}
	if err := s.repomanager.Cases(s.db).Delete(ctx, ownerID, id); err != nil {
		return err
	}

	s.notify(ctx, ownerID)
	return nil
}

func (s *CaseService) CreateReport(ctx context.Context, ownerID string, r models.Report) (*models.Report, error) {
	if r.CaseID == "" {
		return nil, common.ErrorValidation
	}
	// the parent case must exist and belong to the caller
	if _, err := s.repomanager.Cases(s.db).Get(ctx, ownerID, r.CaseID); err != nil {
		return nil, err
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if len(r.ParsedData) == 0 {
		r.ParsedData = []byte("{}")
	}

	if err := s.repomanager.Reports(s.db).Create(ctx, r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *CaseService) ListReports(ctx context.Context, ownerID, caseID string) ([]models.Report, error) {
	if _, err := s.repomanager.Cases(s.db).Get(ctx, ownerID, caseID); err != nil {
		return nil, err
	}
	return s.repomanager.Reports(s.db).ListByCase(ctx, caseID)
}

// notify broadcasts the owner's current snapshot to feed subscribers.
// Failures to read the fresh snapshot silently skip the push; the client
// self-heals on its next refresh.
func (s *CaseService) notify(ctx context.Context, ownerID string) {
	snapshot, err := s.repomanager.Cases(s.db).ListByOwner(ctx, ownerID)
	if err != nil {
		return
	}
	s.hub.Broadcast(ownerID, snapshot)
}

func randomStorageKey() string {
	d := time.Now()
	return fmt.Sprintf("reports/%d/%d/%d/%v", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *CaseService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
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
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	})

	return newS3PresignClient(client), nil
}

// GetPresignedPutURL returns a storage key and a presigned PUT URL the
// client uploads a report PDF to.
func (s *CaseService) GetPresignedPutURL(ctx context.Context) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	bucket := s.config.S3Bucket
	key := randomStorageKey()

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	return key, req.URL, nil
}
