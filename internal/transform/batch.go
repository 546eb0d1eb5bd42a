package transform

import (
	"github.com/idrk/project-data-sync/internal/qualtrics"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// TransformProjects transforms a batch of project responses. Skipped responses
// are dropped; any other failure aborts the batch.
func TransformProjects(responses []*qualtrics.Response) ([]*Record, error) {
	return transformAll(FamilyProjects, responses, TransformProject)
}

// TransformConsultations transforms a batch of consultation responses.
func TransformConsultations(surveyID, reportBaseURL string, responses []*qualtrics.Response) ([]*Record, error) {
	return transformAll(FamilyConsultations, responses, func(resp *qualtrics.Response) (*Record, error) {
		return TransformConsultation(surveyID, reportBaseURL, resp)
	})
}

func transformAll(family Family, responses []*qualtrics.Response, fn func(*qualtrics.Response) (*Record, error)) ([]*Record, error) {
	logger := zap.S().Named("transform").With("family", family)

	records := make([]*Record, 0, len(responses))
	skipped := 0
	for i, resp := range responses {
		rec, err := fn(resp)
		if errors.Is(err, ErrSkipRecord) {
			logger.Debugw("skipping response", "index", i, "response_id", resp.ID())
			skipped++
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "transforming %s response %d", family, i)
		}
		records = append(records, rec)
	}

	logger.Infow("transformed responses", "records", len(records), "skipped", skipped)
	return records, nil
}

func logLeftover(family Family, resp *qualtrics.Response, fields *fieldReader) {
	if unused := fields.leftover(); len(unused) > 0 {
		zap.S().Named("transform").Debugw("fields not mapped", "family", family, "response_id", resp.ID(), "fields", unused)
	}
}
