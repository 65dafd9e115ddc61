// Package objectstore wraps thanos-io/objstore buckets around the three
// storage roles the orchestrator moves a file through (inbox, staging,
// archive), the way the teacher's integrations/gcs package wraps
// cloud.google.com/go/storage directly — generalized here to an
// objstore.Bucket so the same Store works against the teacher's GCS client
// or, in tests, objstore's local filesystem bucket.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/gcs"
)

// Role identifies one of the three buckets the pipeline moves a file
// through, per spec.md §4/§6.
type Role string

const (
	RoleInbox   Role = "inbox"
	RoleStaging Role = "staging"
	RoleArchive Role = "archive"
)

// Store holds one objstore.Bucket per role.
type Store struct {
	buckets map[Role]objstore.Bucket
}

// NewGCSStore builds a Store backed by GCS, one bucket client per role,
// the way the teacher's NewGCSSink opens a single cloud.google.com/go/storage
// client per bucket name.
func NewGCSStore(ctx context.Context, inbox, staging, archive string) (*Store, error) {
	s := &Store{buckets: make(map[Role]objstore.Bucket, 3)}
	roles := map[Role]string{RoleInbox: inbox, RoleStaging: staging, RoleArchive: archive}
	for role, bucket := range roles {
		b, err := gcs.NewBucket(ctx, nil, gcs.Config{Bucket: bucket}, "cleanroom", nil)
		if err != nil {
			return nil, fmt.Errorf("objectstore: failed to open %s bucket %q: %w", role, bucket, err)
		}
		s.buckets[role] = b
	}
	return s, nil
}

// NewStore wraps pre-built buckets directly, used by tests to inject a
// filesystem bucket (objstore's providers/filesystem) for each role.
func NewStore(inbox, staging, archive objstore.Bucket) *Store {
	return &Store{buckets: map[Role]objstore.Bucket{
		RoleInbox:   inbox,
		RoleStaging: staging,
		RoleArchive: archive,
	}}
}

func (s *Store) bucket(role Role) (objstore.Bucket, error) {
	b, ok := s.buckets[role]
	if !ok {
		return nil, fmt.Errorf("objectstore: no bucket configured for role %q", role)
	}
	return b, nil
}

// Read fetches the full contents of name from the given role's bucket.
func (s *Store) Read(ctx context.Context, role Role, name string) ([]byte, error) {
	b, err := s.bucket(role)
	if err != nil {
		return nil, err
	}
	rc, err := b.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("objectstore: failed to get %s/%s: %w", role, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("objectstore: failed to read %s/%s: %w", role, name, err)
	}
	return data, nil
}

// Write uploads data to name in the given role's bucket.
func (s *Store) Write(ctx context.Context, role Role, name string, data []byte) error {
	b, err := s.bucket(role)
	if err != nil {
		return err
	}
	if err := b.Upload(ctx, name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("objectstore: failed to upload %s/%s: %w", role, name, err)
	}
	return nil
}

// Move copies name from one role's bucket to another, then deletes the
// source, giving the orchestrator the atomic-looking inbox->archive move
// spec.md §4 describes without requiring a cross-bucket rename primitive
// (object storage has none).
func (s *Store) Move(ctx context.Context, from, to Role, name string) error {
	data, err := s.Read(ctx, from, name)
	if err != nil {
		return err
	}
	if err := s.Write(ctx, to, name, data); err != nil {
		return err
	}
	srcBucket, err := s.bucket(from)
	if err != nil {
		return err
	}
	if err := srcBucket.Delete(ctx, name); err != nil {
		return fmt.Errorf("objectstore: failed to delete %s/%s after move: %w", from, name, err)
	}
	return nil
}

// Exists reports whether name is present in the given role's bucket.
func (s *Store) Exists(ctx context.Context, role Role, name string) (bool, error) {
	b, err := s.bucket(role)
	if err != nil {
		return false, err
	}
	ok, err := b.Exists(ctx, name)
	if err != nil {
		return false, fmt.Errorf("objectstore: failed to check existence of %s/%s: %w", role, name, err)
	}
	return ok, nil
}

// Close closes every underlying bucket client.
func (s *Store) Close() error {
	var firstErr error
	for role, b := range s.buckets {
		if err := b.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("objectstore: failed to close %s bucket: %w", role, err)
		}
	}
	return firstErr
}
