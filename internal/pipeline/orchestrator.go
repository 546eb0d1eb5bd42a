package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/idrk/project-data-sync/internal/archive"
	"github.com/idrk/project-data-sync/internal/loader"
	"github.com/idrk/project-data-sync/internal/qualtrics"
	"github.com/idrk/project-data-sync/internal/report"
	"github.com/idrk/project-data-sync/internal/transform"
	"github.com/idrk/project-data-sync/pkg/metrics"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"
)

// ExportSource runs the survey export protocol.
type ExportSource interface {
	RequestExport(ctx context.Context, surveyID string, since *time.Time) (*qualtrics.ExportHandle, error)
	AwaitCompletion(ctx context.Context, handle *qualtrics.ExportHandle) (*qualtrics.CompletedExport, error)
	Download(ctx context.Context, export *qualtrics.CompletedExport) ([]byte, error)
}

type RecordLoader interface {
	Load(ctx context.Context, appID int64, records []*transform.Record) *loader.Result
}

type Orchestrator struct {
	source ExportSource
	loader RecordLoader
	cfg    *options
	log    *zap.SugaredLogger
}

// family is one extract, transform and load chain.
type family struct {
	name      transform.Family
	surveyID  string
	appID     int64
	transform func([]*qualtrics.Response) ([]*transform.Record, error)
}

func NewOrchestrator(source ExportSource, recordLoader RecordLoader, opts ...Option) *Orchestrator {
	cfg := &options{}
	for _, o := range opts {
		o(cfg)
	}
	return &Orchestrator{source: source, loader: recordLoader, cfg: cfg}
}

// Run syncs consultations and then projects. A family that fails is recorded
// in the summary and does not stop the other one.
func (o *Orchestrator) Run(ctx context.Context) *Summary {
	summary := &Summary{RunID: uuid.New(), Started: time.Now()}
	o.log = zap.S().Named("pipeline").With("run_id", summary.RunID.String())
	o.log.Infow("run started", "dry_run", o.cfg.dryRun != nil, "since", o.cfg.since)

	families := []family{
		{
			name:     transform.FamilyConsultations,
			surveyID: o.cfg.consultationSurveyID,
			appID:    o.cfg.consultationsAppID,
			transform: func(responses []*qualtrics.Response) ([]*transform.Record, error) {
				return transform.TransformConsultations(o.cfg.consultationSurveyID, o.cfg.reportBaseURL, responses)
			},
		},
		{
			name:      transform.FamilyProjects,
			surveyID:  o.cfg.projectSurveyID,
			appID:     o.cfg.projectsAppID,
			transform: transform.TransformProjects,
		},
	}

	for _, fam := range families {
		start := time.Now()
		result := o.runFamily(ctx, fam)
		summary.Families = append(summary.Families, result)

		o.record(result)
		o.log.Infow("family finished", "family", fam.name, "outcome", result.Outcome,
			"responses", result.Responses, "loaded", result.Loaded, "failed", len(result.Failed),
			"duration", time.Since(start))
	}

	summary.Duration = time.Since(summary.Started)
	metrics.UpdateRunMetrics(summary.Duration, time.Now())
	o.log.Infow("run finished", "consultations", summary.ConsultationsLoaded(), "projects", summary.ProjectsLoaded(),
		"duration", summary.Duration)
	return summary
}

func (o *Orchestrator) runFamily(ctx context.Context, fam family) *FamilyResult {
	result := &FamilyResult{Family: fam.name}
	log := o.log.With("family", fam.name, "survey_id", fam.surveyID)

	responses, err := o.extract(ctx, fam)
	switch {
	case errors.Is(err, qualtrics.ErrEmptyExport):
		log.Info("no new responses")
		result.Outcome = OutcomeEmpty
		return result
	case errors.Is(err, qualtrics.ErrExportTimeout):
		log.Warnw("export not ready, skipping family", "error", err)
		result.Outcome, result.Err = OutcomeTimeout, err
		return result
	case err != nil:
		log.Errorw("failed to extract responses", "error", err)
		result.Outcome, result.Err = OutcomeFailed, err
		return result
	}
	result.Responses = len(responses)

	records, err := fam.transform(responses)
	if err != nil {
		log.Errorw("failed to transform responses", "error", err)
		result.Outcome, result.Err = OutcomeFailed, err
		return result
	}
	result.Transformed = len(records)
	o.addRecords(fam.name, records)

	if o.cfg.dryRun != nil {
		if err := o.print(fam.name, records); err != nil {
			result.Outcome, result.Err = OutcomeFailed, err
			return result
		}
		result.Outcome = OutcomeDryRun
		return result
	}

	loaded := o.loader.Load(ctx, fam.appID, records)
	result.Outcome = OutcomeLoaded
	result.Loaded = loaded.Loaded
	result.Failed = loaded.Failed
	return result
}

func (o *Orchestrator) extract(ctx context.Context, fam family) ([]*qualtrics.Response, error) {
	handle, err := o.source.RequestExport(ctx, fam.surveyID, o.cfg.since)
	if err != nil {
		return nil, err
	}
	completed, err := o.source.AwaitCompletion(ctx, handle)
	if err != nil {
		return nil, err
	}
	data, err := o.source.Download(ctx, completed)
	if err != nil {
		return nil, err
	}

	if o.cfg.sink != nil {
		// the archive copy is best effort
		if _, err := o.cfg.sink.Store(ctx, fam.surveyID, data); err != nil {
			o.log.Warnw("failed to archive export", "family", fam.name, "error", err)
		}
	}

	return qualtrics.Decode(data)
}

type dryRunOutput struct {
	Family  transform.Family    `json:"family"`
	Records []*transform.Record `json:"records"`
}

func (o *Orchestrator) print(name transform.Family, records []*transform.Record) error {
	out, err := yaml.Marshal(dryRunOutput{Family: name, Records: records})
	if err != nil {
		return fmt.Errorf("failed to render %s records: %w", name, err)
	}
	if _, err := fmt.Fprintf(o.cfg.dryRun, "---\n%s", out); err != nil {
		return fmt.Errorf("failed to print %s records: %w", name, err)
	}
	return nil
}

func (o *Orchestrator) addRecords(name transform.Family, records []*transform.Record) {
	if o.cfg.report == nil {
		return
	}
	if err := o.cfg.report.AddRecords(name, records); err != nil {
		o.log.Warnw("failed to add records to report", "family", name, "error", err)
	}
}

// record publishes a family result to the metrics and the report.
func (o *Orchestrator) record(result *FamilyResult) {
	family := string(result.Family)
	metrics.IncreaseExportsMetric(family, string(result.Outcome))
	metrics.IncreaseRecordsLoadedMetric(family, result.Loaded)
	metrics.IncreaseRecordsFailedMetric(family, len(result.Failed))

	if o.cfg.report == nil {
		return
	}
	detail := ""
	if result.Err != nil {
		detail = result.Err.Error()
	}
	if err := o.cfg.report.AddOutcome(result.Family, string(result.Outcome), result.Transformed, result.Loaded, len(result.Failed), detail); err != nil {
		o.log.Warnw("failed to add outcome to report", "family", family, "error", err)
	}
	if err := o.cfg.report.AddFailures(result.Family, result.Failed); err != nil {
		o.log.Warnw("failed to add failures to report", "family", family, "error", err)
	}
}

type options struct {
	projectSurveyID      string
	consultationSurveyID string
	projectsAppID        int64
	consultationsAppID   int64
	reportBaseURL        string
	since                *time.Time
	dryRun               io.Writer
	sink                 archive.Sink
	report               *report.Report
}

type Option func(o *options)

func WithSurveys(projectSurveyID, consultationSurveyID string) Option {
	return func(o *options) {
		o.projectSurveyID = projectSurveyID
		o.consultationSurveyID = consultationSurveyID
	}
}

func WithApps(projectsAppID, consultationsAppID int64) Option {
	return func(o *options) {
		o.projectsAppID = projectsAppID
		o.consultationsAppID = consultationsAppID
	}
}

// WithReportBaseURL sets the survey report page consultation records link to.
func WithReportBaseURL(url string) Option {
	return func(o *options) {
		o.reportBaseURL = url
	}
}

// WithSince limits the exports to responses recorded on or after since.
// A nil since exports every response.
func WithSince(since *time.Time) Option {
	return func(o *options) {
		o.since = since
	}
}

// WithDryRun prints the transformed records to w instead of loading them.
func WithDryRun(w io.Writer) Option {
	return func(o *options) {
		o.dryRun = w
	}
}

func WithArchive(sink archive.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

func WithReport(r *report.Report) Option {
	return func(o *options) {
		o.report = r
	}
}
