// Package blobstore keeps uploaded images in a bbolt file. Image bytes and
// their JSON metadata live in separate buckets under the same key.
package blobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/blackmichael/blogdemo/internal/domain"
	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

const (
	imagesBucket = "images"
	metaBucket   = "image_meta"
)

// Store is a bbolt-backed domain.ImageStore.
type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// Open opens the bbolt file at path, creating it and its buckets if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage path is required")
	}

	db, err := bbolt.Open(filepath.Clean(path), 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open blob db: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.ensureBuckets(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// PutPending stores an unattached image and returns its new ID.
func (s *Store) PutPending(ctx context.Context, ownerID string, upload domain.Upload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(upload.Data) == 0 {
		return "", domain.ErrInvalidUpload
	}

	meta := domain.ImageMeta{
		ID:          uuid.NewString(),
		ContentType: upload.ContentType,
		Size:        len(upload.Data),
		OwnerID:     ownerID,
		CreatedAt:   s.now().UTC(),
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal image meta: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket([]byte(imagesBucket)).Put([]byte(meta.ID), upload.Data); err != nil {
			return fmt.Errorf("put image: %w", err)
		}
		if err := tx.Bucket([]byte(metaBucket)).Put([]byte(meta.ID), payload); err != nil {
			return fmt.Errorf("put image meta: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return meta.ID, nil
}

// Attach marks an image as referenced by a post so cleanup keeps it. Only
// the uploader may attach an image.
func (s *Store) Attach(ctx context.Context, ownerID, id string) error {
	return s.setAttached(ctx, id, func(meta *domain.ImageMeta) error {
		if meta.OwnerID != ownerID {
			return domain.ErrImageNotFound
		}
		return nil
	}, true)
}

// Detach marks an image as pending again.
func (s *Store) Detach(ctx context.Context, id string) error {
	return s.setAttached(ctx, id, nil, false)
}

func (s *Store) setAttached(ctx context.Context, id string, check func(*domain.ImageMeta) error, attached bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(metaBucket))
		meta, err := readMeta(bucket, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(meta); err != nil {
				return err
			}
		}
		if meta.Attached == attached {
			return nil
		}
		meta.Attached = attached
		payload, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal image meta: %w", err)
		}
		return bucket.Put([]byte(id), payload)
	})
}

// Get returns the bytes and metadata of an image.
func (s *Store) Get(ctx context.Context, id string) ([]byte, *domain.ImageMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var (
		data []byte
		meta *domain.ImageMeta
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		meta, err = readMeta(tx.Bucket([]byte(metaBucket)), id)
		if err != nil {
			return err
		}
		raw := tx.Bucket([]byte(imagesBucket)).Get([]byte(id))
		if raw == nil {
			return domain.ErrImageNotFound
		}
		// bbolt memory is only valid inside the transaction.
		data = append([]byte(nil), raw...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return data, meta, nil
}

// DeleteOrphans removes unattached images created before cutoff.
func (s *Store) DeleteOrphans(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	deleted := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		metas := tx.Bucket([]byte(metaBucket))
		images := tx.Bucket([]byte(imagesBucket))

		var stale [][]byte
		err := metas.ForEach(func(k, v []byte) error {
			var meta domain.ImageMeta
			if err := json.Unmarshal(v, &meta); err != nil {
				return fmt.Errorf("unmarshal image meta %s: %w", k, err)
			}
			if !meta.Attached && meta.CreatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		// Deleting while iterating with ForEach is not allowed.
		for _, k := range stale {
			if err := metas.Delete(k); err != nil {
				return fmt.Errorf("delete image meta: %w", err)
			}
			if err := images.Delete(k); err != nil {
				return fmt.Errorf("delete image: %w", err)
			}
		}
		deleted = len(stale)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func readMeta(bucket *bbolt.Bucket, id string) (*domain.ImageMeta, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrImageNotFound
	}
	payload := bucket.Get([]byte(id))
	if payload == nil {
		return nil, domain.ErrImageNotFound
	}
	var meta domain.ImageMeta
	if err := json.Unmarshal(payload, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal image meta: %w", err)
	}
	return &meta, nil
}

func (s *Store) ensureBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{imagesBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
