package runner

import (
	"context"
	"fmt"
	"strings"

	"github.com/withObsrvr/rxnspace/internal/catalog"
	"github.com/withObsrvr/rxnspace/internal/space"
	"github.com/withObsrvr/rxnspace/internal/tables"
)

// ValidationResult contains the outcome of space validation.
type ValidationResult struct {
	Passed   bool
	Errors   []string
	Warnings []string
	RowCount int64
	ByteSize int64
}

// ValidateSpace performs quality checks on a built space before commit.
// This validates:
// - Row count equals the product of component sizes
// - Width equals the sum of component widths
// - Encoded output is non-empty and carries a well-formed checksum
func ValidateSpace(components []LoadedComponent, s *space.Table, output *tables.Output) ValidationResult {
	result := ValidationResult{
		Passed: true,
	}

	if len(components) == 0 {
		result.Errors = append(result.Errors, "space has no components")
		result.Passed = false
	}

	if s == nil {
		result.Errors = append(result.Errors, "no space provided")
		result.Passed = false
	} else {
		// Check 1: Cardinality
		expected := int64(1)
		width := 0
		for _, lc := range components {
			expected *= int64(lc.Table.Len())
			width += lc.Table.Width()
		}
		if len(components) > 0 && int64(s.Len()) != expected {
			result.Errors = append(result.Errors,
				fmt.Sprintf("entry count mismatch: have %d, expected %d", s.Len(), expected))
			result.Passed = false
		}

		// Check 2: Schema width
		if s.Width() != width {
			result.Errors = append(result.Errors,
				fmt.Sprintf("schema width mismatch: have %d, expected %d", s.Width(), width))
			result.Passed = false
		}

		// Check 3: Entry widths
		for i, e := range s.Entries {
			if len(e.Features) != s.Width() {
				result.Errors = append(result.Errors,
					fmt.Sprintf("entry %d (%s) has %d features, expected %d", i, e.Identifier, len(e.Features), s.Width()))
				result.Passed = false
				break
			}
		}

		if dups := s.Duplicates(); len(dups) > 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%d combined identifiers occur more than once", len(dups)))
		}
	}

	if output == nil {
		result.Errors = append(result.Errors, "no encoded output provided")
		result.Passed = false
		return result
	}

	// Check 4: Non-empty output
	if len(output.Data) == 0 {
		result.Errors = append(result.Errors, "empty output data")
		result.Passed = false
	}
	result.ByteSize = int64(len(output.Data))
	result.RowCount = output.RowCount

	if s != nil && output.RowCount != int64(s.Len()) {
		result.Errors = append(result.Errors,
			fmt.Sprintf("encoded row count %d does not match space size %d", output.RowCount, s.Len()))
		result.Passed = false
	}

	// Check 5: Checksum present and matching
	switch {
	case output.Checksum == "":
		result.Errors = append(result.Errors, "missing output checksum")
		result.Passed = false
	case !strings.HasPrefix(output.Checksum, "sha256:"):
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("checksum may be in non-standard format: %s", output.Checksum[:min(20, len(output.Checksum))]))
	case !tables.VerifyChecksum(output.Data, output.Checksum):
		result.Errors = append(result.Errors, "output checksum does not match data")
		result.Passed = false
	}

	return result
}

// Summary joins the validation errors into one message.
func (v ValidationResult) Summary() string {
	return strings.Join(v.Errors, "; ")
}

// RecordQualityResult records the validation result to the catalog.
func RecordQualityResult(ctx context.Context, w catalog.Writer, datasetID int64, buildID string, result ValidationResult) error {
	if datasetID == 0 {
		return nil // No catalog configured
	}

	return w.RecordQuality(ctx, catalog.QualityRecord{
		DatasetID:    datasetID,
		BuildID:      buildID,
		Passed:       result.Passed,
		ErrorMessage: result.Summary(),
	})
}
