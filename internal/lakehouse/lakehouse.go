// Package lakehouse implements the Lakehouse Loader of spec.md §4.M:
// merging a canonical Parquet file into a BigQuery-Iceberg table via
// additive schema evolution. Grounded on the teacher's
// integrations/bigquery package's BigQuery client usage (generalized from
// Storage Read API Arrow streaming to the query/DDL surface this
// component actually needs). Temp views take the fixed name
// <namespace>_<name>_load_tmp, with no uuid suffix.
package lakehouse

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/datagruntio/cleanroom/internal/model"
)

// Writer drives schema-evolving loads into BigQuery-Iceberg tables.
type Writer struct {
	client     *bigquery.Client
	projectID  string
	storageURI string // base URI under which <namespace>/<name> directories live
	connection string // BigQuery connection resource used for BigLake/Iceberg tables
}

// NewWriter opens a BigQuery client scoped to projectID.
func NewWriter(ctx context.Context, projectID, storageURI, connection string) (*Writer, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("lakehouse: failed to open bigquery client: %w", err)
	}
	return &Writer{client: client, projectID: projectID, storageURI: storageURI, connection: connection}, nil
}

// Close releases the underlying BigQuery client.
func (w *Writer) Close() error {
	return w.client.Close()
}

// LoadResult is the opaque outcome of one Load call, per spec.md §4.M's
// "each call returns an opaque load_id".
type LoadResult struct {
	LoadID      string
	Table       string
	RowsScanned int64
	Created     bool
}

func (w *Writer) table(namespace, name string) *bigquery.Table {
	return w.client.DatasetInProject(w.projectID, namespace).Table(name)
}

// exists reports whether the target table is already present.
func (w *Writer) exists(ctx context.Context, namespace, name string) (bool, error) {
	_, err := w.table(namespace, name).Metadata(ctx)
	if err == nil {
		return true, nil
	}
	if strings.Contains(err.Error(), "notFound") {
		return false, nil
	}
	return false, err
}

func (w *Writer) run(ctx context.Context, sql string) error {
	q := w.client.Query(sql)
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("lakehouse: failed to submit query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("lakehouse: failed waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("lakehouse: job failed: %w", err)
	}
	return nil
}

func fqTable(project, namespace, name string) string {
	return fmt.Sprintf("`%s.%s.%s`", project, namespace, name)
}

func tempViewName(namespace, name string) string {
	return fmt.Sprintf("%s_%s_load_tmp", namespace, name)
}

// Load is the single entry point spec.md §4.M describes: create the
// target if absent, else evolve schema and append/overwrite/upsert.
func (w *Writer) Load(ctx context.Context, req model.LoadRequest) (LoadResult, error) {
	namespace, name := req.TargetNamespace, req.TargetTable
	fq := fqTable(w.projectID, namespace, name)
	tmpView := tempViewName(namespace, name)

	present, err := w.exists(ctx, namespace, name)
	if err != nil {
		return LoadResult{}, err
	}

	externalTemp := fmt.Sprintf(
		`CREATE OR REPLACE EXTERNAL TABLE %s OPTIONS (format = 'PARQUET', uris = ['%s'])`,
		tmpView, req.ParquetURI,
	)
	if err := w.run(ctx, externalTemp); err != nil {
		return LoadResult{}, err
	}
	defer func() { _ = w.run(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tmpView)) }()

	if !present {
		createSQL := fmt.Sprintf(
			`CREATE TABLE %s WITH CONNECTION %s OPTIONS(file_format='PARQUET', table_format='ICEBERG', storage_uri='%s/%s/%s') AS SELECT * FROM %s`,
			fq, w.connection, w.storageURI, namespace, name, tmpView,
		)
		if err := w.run(ctx, createSQL); err != nil {
			return LoadResult{}, err
		}
		return LoadResult{LoadID: req.FileHash, Table: fq, RowsScanned: req.RowCount, Created: true}, nil
	}

	if err := w.evolveSchema(ctx, fq, tmpView); err != nil {
		return LoadResult{}, err
	}

	switch req.WriteMode {
	case model.WriteModeOverwrite:
		if err := w.run(ctx, fmt.Sprintf(`DELETE FROM %s WHERE TRUE`, fq)); err != nil {
			return LoadResult{}, err
		}
		if err := w.insertCastSelect(ctx, fq, tmpView); err != nil {
			return LoadResult{}, err
		}
	case model.WriteModeUpsert:
		if len(req.UpsertKeys) == 0 {
			return LoadResult{}, fmt.Errorf("lakehouse: upsert requires non-empty upsert_keys")
		}
		if err := w.deleteMatching(ctx, fq, tmpView, req.UpsertKeys); err != nil {
			return LoadResult{}, err
		}
		if err := w.insertCastSelect(ctx, fq, tmpView); err != nil {
			return LoadResult{}, err
		}
	default: // APPEND
		if err := w.insertCastSelect(ctx, fq, tmpView); err != nil {
			return LoadResult{}, err
		}
	}

	return LoadResult{LoadID: req.FileHash, Table: fq, RowsScanned: req.RowCount, Created: false}, nil
}

// evolveSchema adds any columns present in the temp view but absent from
// the target, additive only, per spec.md §4.M.
func (w *Writer) evolveSchema(ctx context.Context, fqTarget, tmpView string) error {
	targetCols, err := w.columnSet(ctx, fqTarget)
	if err != nil {
		return err
	}
	sourceSchema, err := w.schemaOf(ctx, tmpView)
	if err != nil {
		return err
	}
	for _, f := range sourceSchema {
		if _, ok := targetCols[f.Name]; ok {
			continue
		}
		alter := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, fqTarget, quoteIdent(f.Name), bqTypeName(f.Type))
		if err := w.run(ctx, alter); err != nil {
			return fmt.Errorf("lakehouse: failed to add column %q: %w", f.Name, err)
		}
	}
	return nil
}

// insertCastSelect builds INSERT INTO target SELECT <col-by-col mapping
// in target order> FROM tmpView, SAFE_CAST-ing mismatched types and
// supplying NULL for columns the source lacks, then appends any source
// columns the evolve step just added, per spec.md §4.M.
func (w *Writer) insertCastSelect(ctx context.Context, fqTarget, tmpView string) error {
	targetSchema, err := w.schemaOf(ctx, fqTarget)
	if err != nil {
		return err
	}
	sourceSchema, err := w.schemaOf(ctx, tmpView)
	if err != nil {
		return err
	}
	sourceTypes := make(map[string]bigquery.FieldType, len(sourceSchema))
	for _, f := range sourceSchema {
		sourceTypes[f.Name] = f.Type
	}

	var exprs []string
	for _, tf := range targetSchema {
		srcType, present := sourceTypes[tf.Name]
		switch {
		case !present:
			exprs = append(exprs, fmt.Sprintf("NULL AS %s", quoteIdent(tf.Name)))
		case srcType == tf.Type:
			exprs = append(exprs, quoteIdent(tf.Name))
		default:
			exprs = append(exprs, fmt.Sprintf("SAFE_CAST(%s AS %s) AS %s", quoteIdent(tf.Name), bqTypeName(tf.Type), quoteIdent(tf.Name)))
		}
	}

	insertSQL := fmt.Sprintf(`INSERT INTO %s SELECT %s FROM %s`, fqTarget, strings.Join(exprs, ", "), tmpView)
	return w.run(ctx, insertSQL)
}

// deleteMatching removes target rows whose upsert-key tuple appears in
// the incoming batch, ahead of the insert, implementing upsert-by-
// delete-then-insert per spec.md §4.M.
func (w *Writer) deleteMatching(ctx context.Context, fqTarget, tmpView string, keys []string) error {
	var conds []string
	for _, k := range keys {
		conds = append(conds, fmt.Sprintf("%s.%s = %s.%s", fqTarget, quoteIdent(k), tmpView, quoteIdent(k)))
	}
	sql := fmt.Sprintf(
		`DELETE FROM %s WHERE EXISTS (SELECT 1 FROM %s WHERE %s)`,
		fqTarget, tmpView, strings.Join(conds, " AND "),
	)
	return w.run(ctx, sql)
}

func (w *Writer) columnSet(ctx context.Context, fqName string) (map[string]struct{}, error) {
	schema, err := w.schemaOf(ctx, fqName)
	if err != nil {
		return nil, err
	}
	out := make(map[string]struct{}, len(schema))
	for _, f := range schema {
		out[f.Name] = struct{}{}
	}
	return out, nil
}

// schemaOf reads a zero-row result's schema, the same query surface for
// both the temp external table and the target table.
func (w *Writer) schemaOf(ctx context.Context, fqName string) (bigquery.Schema, error) {
	sql := fmt.Sprintf(`SELECT * FROM %s LIMIT 0`, fqName)
	q := w.client.Query(sql)
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("lakehouse: failed to read schema of %s: %w", fqName, err)
	}
	return it.Schema, nil
}

func bqTypeName(t bigquery.FieldType) string {
	return string(t)
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
