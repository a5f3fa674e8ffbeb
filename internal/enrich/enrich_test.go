package enrich_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nziran/gradpipe/internal/database"
	"github.com/nziran/gradpipe/internal/enrich"
	"github.com/nziran/gradpipe/internal/logger"
)

type fakeSource struct {
	rows []database.EnrichmentRow
	err  error
}

func (f *fakeSource) RowsForEnrichment(ctx context.Context) ([]database.EnrichmentRow, error) {
	return f.rows, f.err
}

type fakeApplier struct {
	applied map[string][2]string
	missing map[string]struct{}
	errOn   map[string]struct{}
}

func (f *fakeApplier) ApplyEnrichment(ctx context.Context, url, program, university string) (int64, error) {
	if _, bad := f.errOn[url]; bad {
		return 0, errors.New("write failed")
	}
	if _, miss := f.missing[url]; miss {
		return 0, nil
	}
	if f.applied == nil {
		f.applied = map[string][2]string{}
	}
	f.applied[url] = [2]string{program, university}
	return 1, nil
}

func TestExportWritesBatch(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		rows: []database.EnrichmentRow{
			{URL: "https://www.thegradcafe.com/result/1", Program: "cs phd", University: "example u"},
			{URL: "https://www.thegradcafe.com/result/2", Program: "history ma", University: "other c"},
		},
	}

	var buf bytes.Buffer
	count, err := enrich.Export(context.Background(), src, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var decoded []enrich.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "https://www.thegradcafe.com/result/1", decoded[0].URL)
	assert.Equal(t, "cs phd", decoded[0].Program)
}

func TestExportSourceError(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("db down")}

	var buf bytes.Buffer
	_, err := enrich.Export(context.Background(), src, &buf)
	require.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestMergeBackCountsMatches(t *testing.T) {
	t.Parallel()

	input := `[
		{"url": "https://www.thegradcafe.com/result/1", "program": "Computer Science", "university": "Example University"},
		{"url": "https://www.thegradcafe.com/result/404", "program": "History", "university": "Ghost College"},
		{"url": "https://www.thegradcafe.com/result/2", "program": "Biology", "university": "Other College"}
	]`

	applier := &fakeApplier{
		missing: map[string]struct{}{"https://www.thegradcafe.com/result/404": {}},
	}

	report, err := enrich.MergeBack(context.Background(), applier, strings.NewReader(input), logger.NewNoOp())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 1, report.Unmatched)
	assert.Equal(t, []string{"https://www.thegradcafe.com/result/404"}, report.UnmatchedKeys)

	got := applier.applied["https://www.thegradcafe.com/result/1"]
	assert.Equal(t, "Computer Science", got[0])
	assert.Equal(t, "Example University", got[1])
}

func TestMergeBackInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := enrich.MergeBack(context.Background(), &fakeApplier{}, strings.NewReader("{not json"), logger.NewNoOp())
	require.Error(t, err)
}

func TestMergeBackApplierErrorDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	input := `[
		{"url": "https://www.thegradcafe.com/result/1", "program": "p", "university": "u"},
		{"url": "https://www.thegradcafe.com/result/2", "program": "q", "university": "v"}
	]`
	applier := &fakeApplier{
		errOn: map[string]struct{}{"https://www.thegradcafe.com/result/1": {}},
	}

	report, err := enrich.MergeBack(context.Background(), applier, strings.NewReader(input), logger.NewNoOp())
	require.NoError(t, err, "a storage failure on one row must not abort the batch")

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"https://www.thegradcafe.com/result/1"}, report.FailedKeys)
	assert.Equal(t, 1, report.Matched, "rows after the failure are still applied")

	got := applier.applied["https://www.thegradcafe.com/result/2"]
	assert.Equal(t, "q", got[0])
}
