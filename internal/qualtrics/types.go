package qualtrics

const percentDone = 100

// ExportHandle identifies an export job requested from Qualtrics.
type ExportHandle struct {
	SurveyID  string
	ExportID  string
	StatusURL string
}

type ExportStatus struct {
	PercentComplete float64
	Status          string
	FileURL         string
}

func (s *ExportStatus) Done() bool {
	return s.PercentComplete >= percentDone
}

// CompletedExport is an export whose archive is ready to download.
type CompletedExport struct {
	SurveyID string
	FileURL  string
}
