package compare

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bcsv-io/benchstand/pkg/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowsRecord(dataset string, numRows int64) results.ResultRecord {
	return results.ResultRecord{
		Dataset:    dataset,
		Mode:       "m",
		NumColumns: 1,
		NumRows:    numRows,
	}
}

func TestCheckRowCountsMatch(t *testing.T) {
	baseline := keyed(rowsRecord("a", 10_000), rowsRecord("b", 10_000))
	candidate := keyed(rowsRecord("a", 10_000), rowsRecord("b", 10_000))

	assert.NoError(t, CheckRowCounts(baseline, candidate))
}

func TestCheckRowCountsMismatch(t *testing.T) {
	baseline := keyed(rowsRecord("a", 10_000))
	candidate := keyed(rowsRecord("a", 9_000))

	err := CheckRowCounts(baseline, candidate)
	require.Error(t, err)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Len(t, mismatch.Mismatches, 1)

	assert.Equal(t, int64(10_000), mismatch.Mismatches[0].BaselineRows)
	assert.Equal(t, int64(9_000), mismatch.Mismatches[0].CandidateRows)
	assert.Contains(t, err.Error(), "a/m")
}

func TestCheckRowCountsZeroSideIgnored(t *testing.T) {
	// A side without row counts cannot be meaningfully compared, so no
	// mismatch is raised.
	baseline := keyed(rowsRecord("a", 0))
	candidate := keyed(rowsRecord("a", 9_000))

	assert.NoError(t, CheckRowCounts(baseline, candidate))
}

func TestCheckRowCountsUnmatchedKeysIgnored(t *testing.T) {
	baseline := keyed(rowsRecord("base_only", 10_000))
	candidate := keyed(rowsRecord("cand_only", 9_000))

	assert.NoError(t, CheckRowCounts(baseline, candidate))
}

func TestMismatchErrorTruncation(t *testing.T) {
	var (
		baseRecords []results.ResultRecord
		candRecords []results.ResultRecord
	)

	for i := 0; i < 15; i++ {
		baseRecords = append(baseRecords, rowsRecord(fmt.Sprintf("ds%02d", i), 10_000))
		candRecords = append(candRecords, rowsRecord(fmt.Sprintf("ds%02d", i), 9_000))
	}

	err := CheckRowCounts(keyed(baseRecords...), keyed(candRecords...))
	require.Error(t, err)

	var mismatch *MismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Len(t, mismatch.Mismatches, 15)
	assert.Contains(t, err.Error(), "and 5 more")
}
