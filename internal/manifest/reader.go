package manifest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lamim/irida-prep/pkg/models"
)

// ReadSampleList parses a SampleList.csv. The [Data] marker and the column
// header are optional and whitespace around fields is ignored.
func ReadSampleList(path string) ([]models.ManifestRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sample list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows []models.ManifestRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse sample list %s: %w", path, err)
		}

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}
		if len(record) == 1 && (record[0] == DataMarker || record[0] == "") {
			continue
		}
		if record[0] == "Sample_Name" {
			continue
		}

		line, _ := r.FieldPos(0)
		if len(record) < 3 || len(record) > 4 {
			return nil, fmt.Errorf("%s line %d: expected 3 or 4 columns, got %d", path, line, len(record))
		}
		if record[0] == "" || record[2] == "" {
			return nil, fmt.Errorf("%s line %d: sample name and forward file are required", path, line)
		}

		row := models.ManifestRow{
			SampleID:    record[0],
			ProjectID:   record[1],
			ForwardFile: record[2],
		}
		if len(record) == 4 {
			row.ReverseFile = record[3]
		}
		rows = append(rows, row)
	}

	return rows, nil
}
