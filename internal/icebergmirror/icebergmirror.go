// Package icebergmirror is the Local Iceberg Mirror diagnostic: a local,
// file-backed Iceberg table that mirrors canonical Parquet exports so a
// committed export can be read back without a live BigQuery project. No
// other package or test in this module constructs one. It adapts the
// teacher's integrations/iceberg.go Iceberg type almost verbatim in
// structure (a catalog.Catalog + objstore.Bucket pair, a SnapshotWriter-
// based Upload, a manifest-driven Scan) but drops that file's
// frostdb/logicalplan filter-pushdown machinery: this mirror always
// reads a table back in full, never serving filtered analytic queries, so
// the predicate-evaluation layer has no job to do here.
package icebergmirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/parquet-go/parquet-go"
	"github.com/polarsignals/frostdb/dynparquet"
	"github.com/polarsignals/iceberg-go"
	"github.com/polarsignals/iceberg-go/catalog"
	"github.com/polarsignals/iceberg-go/table"
	"github.com/thanos-io/objstore"
	"github.com/thanos-io/objstore/providers/filesystem"
)

var defaultWriterOptions = []table.WriterOption{
	table.WithManifestSizeBytes(1 * 1024 * 1024),
	table.WithMergeSchema(),
	table.WithMetadataDeleteAfterCommit(),
	table.WithMetadataPreviousVersionsMax(3),
}

// Mirror is a local, working-directory-rooted Iceberg sink/source. It is
// never on the production write path (internal/lakehouse.Writer is); it
// exists purely as a diagnostic and test double standing in for the real
// BigQuery-Iceberg table.
type Mirror struct {
	catalog   catalog.Catalog
	bucketURI string
	bucket    objstore.Bucket
	logger    log.Logger
}

// New opens a Mirror rooted at <workDir>/iceberg_mirror, backed by a
// filesystem objstore.Bucket (the same objstore library
// internal/objectstore wraps with a GCS backend; here it's the local
// provider). The catalog is injected exactly as the teacher's NewIceberg
// takes one, since this package has no opinion on which iceberg-go
// catalog implementation a caller wires in (REST, in-memory, etc).
func New(workDir string, ctlg catalog.Catalog, logger log.Logger) (*Mirror, error) {
	root := filepath.Join(workDir, "iceberg_mirror")
	bkt, err := filesystem.NewBucket(root)
	if err != nil {
		return nil, fmt.Errorf("icebergmirror: failed to open local bucket at %s: %w", root, err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Mirror{catalog: ctlg, bucketURI: root, bucket: bkt, logger: logger}, nil
}

func (m *Mirror) tablePath(namespace, name string) string {
	return filepath.Join(m.bucketURI, namespace, name)
}

// Upload appends a canonical Parquet export (namespace/name identify the
// mirrored table, matching the Lakehouse Loader's own namespace/name
// addressing) into the mirror, creating the table on first write.
func (m *Mirror) Upload(ctx context.Context, namespace, name string, r io.Reader) error {
	tablePath := m.tablePath(namespace, name)

	t, err := m.catalog.LoadTable(ctx, []string{tablePath}, iceberg.Properties{})
	if err != nil {
		if !errors.Is(err, catalog.ErrorTableNotFound) {
			return fmt.Errorf("icebergmirror: failed to load table %s: %w", tablePath, err)
		}
		t, err = m.catalog.CreateTable(ctx, tablePath, iceberg.NewSchema(0), iceberg.Properties{})
		if err != nil {
			return fmt.Errorf("icebergmirror: failed to create table %s: %w", tablePath, err)
		}
	}

	w, err := t.SnapshotWriter(defaultWriterOptions...)
	if err != nil {
		return fmt.Errorf("icebergmirror: failed to open snapshot writer for %s: %w", tablePath, err)
	}
	if err := w.Append(ctx, r); err != nil {
		_ = w.Close(ctx)
		return fmt.Errorf("icebergmirror: failed to append to %s: %w", tablePath, err)
	}
	if err := w.Close(ctx); err != nil {
		return fmt.Errorf("icebergmirror: failed to commit snapshot for %s: %w", tablePath, err)
	}
	level.Info(m.logger).Log("msg", "icebergmirror: uploaded", "table", tablePath)
	return nil
}

// Exists reports whether namespace/name has ever been mirrored.
func (m *Mirror) Exists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := m.catalog.LoadTable(ctx, []string{m.tablePath(namespace, name)}, iceberg.Properties{})
	if err != nil {
		if errors.Is(err, catalog.ErrorTableNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Scan reads every row group of every data file in the table's current
// snapshot and hands each to callback. It always reads the table in full;
// there is no filter pushdown.
func (m *Mirror) Scan(ctx context.Context, namespace, name string, callback func(context.Context, dynparquet.DynamicRowGroup) error) error {
	tablePath := m.tablePath(namespace, name)
	t, err := m.catalog.LoadTable(ctx, []string{tablePath}, iceberg.Properties{})
	if err != nil {
		if errors.Is(err, catalog.ErrorTableNotFound) {
			return nil
		}
		return fmt.Errorf("icebergmirror: failed to load table %s: %w", tablePath, err)
	}

	snapshot := t.CurrentSnapshot()
	if snapshot == nil {
		return nil
	}
	manifests, err := snapshot.Manifests(m.bucket)
	if err != nil {
		return fmt.Errorf("icebergmirror: failed to read manifest list for %s: %w", tablePath, err)
	}

	for _, manifest := range manifests {
		entries, _, err := manifest.FetchEntries(m.bucket, false)
		if err != nil {
			return fmt.Errorf("icebergmirror: failed to fetch manifest entries for %s: %w", manifest.FilePath(), err)
		}
		for _, e := range entries {
			if err := m.scanDataFile(ctx, e, callback); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Mirror) scanDataFile(ctx context.Context, e iceberg.ManifestEntry, callback func(context.Context, dynparquet.DynamicRowGroup) error) error {
	path := e.DataFile().FilePath()
	ra := &bucketReaderAt{ctx: ctx, bucket: m.bucket, name: path}

	file, err := parquet.OpenFile(ra, e.DataFile().FileSizeBytes(), parquet.FileReadMode(parquet.ReadModeAsync))
	if err != nil {
		return fmt.Errorf("icebergmirror: failed to open data file %s: %w", path, err)
	}
	buf, err := dynparquet.NewSerializedBuffer(file)
	if err != nil {
		return fmt.Errorf("icebergmirror: failed to read buffer for %s: %w", path, err)
	}
	for i := 0; i < buf.NumRowGroups(); i++ {
		if err := callback(ctx, buf.DynamicRowGroup(i)); err != nil {
			return err
		}
	}
	return nil
}

// bucketReaderAt adapts objstore.Bucket's ranged reads to io.ReaderAt,
// the interface parquet-go's reader needs and which the object-store
// client otherwise has no direct equivalent for.
type bucketReaderAt struct {
	ctx    context.Context
	bucket objstore.Bucket
	name   string
}

func (b *bucketReaderAt) ReadAt(p []byte, off int64) (int, error) {
	rc, err := b.bucket.GetRange(b.ctx, b.name, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.ReadFull(rc, p)
}

// Delete is a no-op, matching the teacher's Iceberg.Delete: Iceberg
// tables are append-only snapshot chains, and this mirror has no
// standalone object to remove outside of a snapshot commit.
func (m *Mirror) Delete(_ context.Context, _, _ string) error {
	return nil
}
