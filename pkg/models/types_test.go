package models

import (
	"reflect"
	"testing"
)

func TestManifestRowFiles(t *testing.T) {
	tests := []struct {
		name string
		row  ManifestRow
		want []string
	}{
		{"paired", ManifestRow{SampleID: "s1", ForwardFile: "s1_R1_001.fastq.gz", ReverseFile: "s1_R2_001.fastq.gz"}, []string{"s1_R1_001.fastq.gz", "s1_R2_001.fastq.gz"}},
		{"single", ManifestRow{SampleID: "b1", ForwardFile: "b1.fastq.gz"}, []string{"b1.fastq.gz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.row.Files(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Files() = %v, want %v", got, tt.want)
			}
			if got := tt.row.Paired(); got != (len(tt.want) == 2) {
				t.Errorf("Paired() = %v", got)
			}
		})
	}
}

func TestRunStatusIsUploaded(t *testing.T) {
	st := &RunStatus{UploadedRows: []string{"s1_S1_L001_R1_001.fastq.gz"}}
	lane1 := ManifestRow{SampleID: "s1", ForwardFile: "s1_S1_L001_R1_001.fastq.gz"}
	lane2 := ManifestRow{SampleID: "s1", ForwardFile: "s1_S1_L002_R1_001.fastq.gz"}
	if !st.IsUploaded(lane1.Key()) {
		t.Error("Expected lane 1 to be uploaded")
	}
	if st.IsUploaded(lane2.Key()) {
		t.Error("Lane 2 of the same sample was never uploaded")
	}
}
