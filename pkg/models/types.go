package models

// UploadMode selects which IRIDA endpoint receives the sequence files of a sample
type UploadMode string

const (
	// UploadModeDefault sends reads as paired or single-end sequence files
	UploadModeDefault UploadMode = "default"
	// UploadModeAssemblies sends each file as an assembly
	UploadModeAssemblies UploadMode = "assemblies"
	// UploadModeFast5 sends each file as a nanopore fast5 file
	UploadModeFast5 UploadMode = "fast5"
)

// UploadModes lists the accepted upload modes in CLI order
var UploadModes = []UploadMode{UploadModeDefault, UploadModeAssemblies, UploadModeFast5}

// Project is a named container on the IRIDA server
type Project struct {
	Identifier  string `json:"identifier,omitempty"`
	Name        string `json:"name"`
	Description string `json:"projectDescription,omitempty"`
}

// Sample is a sample record inside a project
type Sample struct {
	Identifier string `json:"identifier,omitempty"`
	Name       string `json:"sampleName"`
}

// ManifestRow is one line of SampleList.csv.
// ReverseFile is empty for single-end runs.
type ManifestRow struct {
	SampleID    string
	ProjectID   string
	ForwardFile string
	ReverseFile string
}

// Paired reports whether the row carries a reverse read file
func (r ManifestRow) Paired() bool {
	return r.ReverseFile != ""
}

// Files returns the forward file followed by the reverse file when present
func (r ManifestRow) Files() []string {
	if r.Paired() {
		return []string{r.ForwardFile, r.ReverseFile}
	}
	return []string{r.ForwardFile}
}

// Key identifies the row within its manifest. A sample sequenced on several
// lanes has one row per lane, so the sample id alone is not unique.
func (r ManifestRow) Key() string {
	return r.ForwardFile
}
