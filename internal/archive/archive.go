// Package archive exports a user's board as an encrypted JSON object to
// S3-compatible storage and restores it again.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dukerupert/daybook/internal/model"
)

const MinPassphraseLength = 8

var (
	ErrDisabled       = errors.New("archive storage not configured")
	ErrNotFound       = errors.New("archive not found")
	ErrWeakPassphrase = fmt.Errorf("passphrase must be at least %d characters", MinPassphraseLength)
	ErrNotRestorable  = errors.New("archive has not completed")
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Store interface {
	Create(userID, filename, objectKey string) (*model.Archive, error)
	GetByID(userID string, id int64) (*model.Archive, error)
	List(userID string, limit int) ([]model.Archive, error)
	UpdateStatus(id int64, status model.ArchiveStatus, errorMsg string) error
	UpdateCompleted(id, sizeBytes int64) error
	Delete(userID string, id int64) (bool, error)
}

// Boards reads and writes the content being archived.
type Boards interface {
	Snapshot(userID string) (*model.Board, error)
	Restore(userID string, b *model.Board) error
}

// StatusCallback is called after an archive record changes state.
type StatusCallback func(userID string, a *model.Archive)

type Manager struct {
	mu       sync.RWMutex
	bucket   string
	client   s3Client
	store    Store
	boards   Boards
	callback StatusCallback
	logger   *slog.Logger
	now      func() time.Time
}

func NewManager(cfg S3Config, st Store, boards Boards, callback StatusCallback, logger *slog.Logger) *Manager {
	m := &Manager{
		bucket:   cfg.Bucket,
		store:    st,
		boards:   boards,
		callback: callback,
		logger:   logger.With("component", "archive"),
		now:      time.Now,
	}
	if cfg.complete() {
		m.client = newS3Client(cfg)
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether storage credentials are configured.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

func (m *Manager) storage() (s3Client, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, "", ErrDisabled
	}
	return m.client, m.bucket, nil
}

func (m *Manager) changed(userID string, id int64) {
	if m.callback == nil {
		return
	}
	a, err := m.store.GetByID(userID, id)
	if err != nil || a == nil {
		return
	}
	m.callback(userID, a)
}

func (m *Manager) fail(userID string, id int64, err error) {
	if uerr := m.store.UpdateStatus(id, model.ArchiveStatusFailed, err.Error()); uerr != nil {
		m.logger.Error("mark archive failed", "id", id, "error", uerr)
	}
	m.changed(userID, id)
}

// Export snapshots the user's board, encrypts it with passphrase and uploads
// it. The returned record reflects the final state.
func (m *Manager) Export(ctx context.Context, userID, passphrase string) (*model.Archive, error) {
	client, bucket, err := m.storage()
	if err != nil {
		return nil, err
	}
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrWeakPassphrase
	}

	timestamp := m.now().UTC().Format("2006-01-02T150405Z")
	filename := fmt.Sprintf("daybook-%s.json.enc", timestamp)
	key := fmt.Sprintf("%s/%s", url.PathEscape(userID), filename)

	record, err := m.store.Create(userID, filename, key)
	if err != nil {
		return nil, fmt.Errorf("create archive record: %w", err)
	}
	if err := m.store.UpdateStatus(record.ID, model.ArchiveStatusUploading, ""); err != nil {
		return nil, fmt.Errorf("mark uploading: %w", err)
	}
	m.changed(userID, record.ID)

	board, err := m.boards.Snapshot(userID)
	if err != nil {
		m.fail(userID, record.ID, err)
		return nil, fmt.Errorf("snapshot board: %w", err)
	}
	plain, err := json.Marshal(board)
	if err != nil {
		m.fail(userID, record.ID, err)
		return nil, fmt.Errorf("encode board: %w", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		m.fail(userID, record.ID, err)
		return nil, err
	}
	sealed, err := Encrypt(plain, passphrase, salt)
	if err != nil {
		m.fail(userID, record.ID, err)
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		m.fail(userID, record.ID, err)
		return nil, fmt.Errorf("upload to s3: %w", err)
	}

	if err := m.store.UpdateCompleted(record.ID, int64(len(sealed))); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	m.changed(userID, record.ID)
	m.logger.Info("archive exported", "user", userID, "id", record.ID, "tasks", len(board.Tasks), "bytes", len(sealed))

	return m.store.GetByID(userID, record.ID)
}

func (m *Manager) List(userID string, limit int) ([]model.Archive, error) {
	if limit <= 0 {
		limit = 50
	}
	return m.store.List(userID, limit)
}

// Restore downloads a completed archive, decrypts it and merges it back
// into the user's board.
func (m *Manager) Restore(ctx context.Context, userID string, id int64, passphrase string) (*model.Board, error) {
	client, bucket, err := m.storage()
	if err != nil {
		return nil, err
	}

	record, err := m.store.GetByID(userID, id)
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	if record == nil {
		return nil, ErrNotFound
	}
	if record.Status != model.ArchiveStatusCompleted {
		return nil, ErrNotRestorable
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(record.ObjectKey),
	})
	if err != nil {
		return nil, fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	plain, err := Decrypt(sealed, passphrase)
	if err != nil {
		return nil, err
	}

	var board model.Board
	if err := json.Unmarshal(plain, &board); err != nil {
		return nil, fmt.Errorf("decode board: %w", err)
	}
	if err := m.boards.Restore(userID, &board); err != nil {
		return nil, fmt.Errorf("restore board: %w", err)
	}
	m.logger.Info("archive restored", "user", userID, "id", id, "tasks", len(board.Tasks))
	return &board, nil
}

// Delete removes the stored object and its record.
func (m *Manager) Delete(ctx context.Context, userID string, id int64) error {
	client, bucket, err := m.storage()
	if err != nil {
		return err
	}

	record, err := m.store.GetByID(userID, id)
	if err != nil {
		return fmt.Errorf("get archive: %w", err)
	}
	if record == nil {
		return ErrNotFound
	}

	if record.Status == model.ArchiveStatusCompleted {
		_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(record.ObjectKey),
		})
		if err != nil {
			return fmt.Errorf("delete from s3: %w", err)
		}
	}
	if _, err := m.store.Delete(userID, id); err != nil {
		return err
	}
	if m.callback != nil {
		record.Status = model.ArchiveStatusDeleted
		m.callback(userID, record)
	}
	return nil
}
