package results

import (
	"fmt"
	"path/filepath"

	"github.com/bcsv-io/benchstand/pkg/fsutil"
)

// ReadMacro loads a macro result file from a run directory.
func ReadMacro(runDir string, t RunType) (*MacroPayload, error) {
	if !t.IsMacro() {
		return nil, fmt.Errorf("run type %s has no macro results", t)
	}

	path := filepath.Join(runDir, t.ResultFile())

	var payload MacroPayload
	if err := fsutil.ReadJSON(path, &payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

// ReadMicro loads the micro result file from a run directory.
func ReadMicro(runDir string) (*MicroPayload, error) {
	path := filepath.Join(runDir, TypeMicro.ResultFile())

	var payload MicroPayload
	if err := fsutil.ReadJSON(path, &payload); err != nil {
		return nil, err
	}

	return &payload, nil
}

// WriteMacro writes a macro payload to the run-type result file.
func WriteMacro(runDir string, t RunType, payload *MacroPayload) error {
	return fsutil.WriteJSON(filepath.Join(runDir, t.ResultFile()), payload)
}

// WriteMicro writes a micro payload to the micro result file.
func WriteMicro(runDir string, payload *MicroPayload) error {
	return fsutil.WriteJSON(filepath.Join(runDir, TypeMicro.ResultFile()), payload)
}

// StripSkipped removes skipped rows from the payload, recording the count
// in SkippedCount. Skipped rows carry no trustworthy measurements and must
// never reach aggregation or comparison.
func StripSkipped(payload *MacroPayload) int {
	kept := payload.Results[:0]

	for _, row := range payload.Results {
		if row.Skipped() {
			continue
		}

		kept = append(kept, row)
	}

	stripped := len(payload.Results) - len(kept)
	payload.Results = kept

	if stripped > 0 {
		payload.SkippedCount += stripped
	}

	return stripped
}

// ByKey indexes the payload's records by workload key. Within a single
// payload keys are expected to be unique; on duplicates the last record
// wins (the aggregator folds duplicates before comparison).
func ByKey(payload *MacroPayload) map[WorkloadKey]ResultRecord {
	out := make(map[WorkloadKey]ResultRecord, len(payload.Results))

	for _, row := range payload.Results {
		if row.Skipped() {
			continue
		}

		out[KeyOf(&row)] = row
	}

	return out
}
