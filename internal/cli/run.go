package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/idrk/project-data-sync/internal/archive"
	"github.com/idrk/project-data-sync/internal/loader"
	"github.com/idrk/project-data-sync/internal/pipeline"
	"github.com/idrk/project-data-sync/internal/podio"
	"github.com/idrk/project-data-sync/internal/qualtrics"
	"github.com/idrk/project-data-sync/internal/report"
	"github.com/idrk/project-data-sync/pkg/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

const (
	jsonFormat = "json"

	// defaultWindow is how far back a run looks when neither --since nor --all is given.
	defaultWindow = 24 * time.Hour
)

var (
	legalReportExtensions = []string{".xlsx"}
	sinceLayouts          = []string{time.DateOnly, time.RFC3339}
)

type RunOptions struct {
	GlobalOptions

	DryRun bool
	Since  string
	All    bool
	Report string

	since *time.Time
	now   func() time.Time
	out   io.Writer
}

func DefaultRunOptions() *RunOptions {
	return &RunOptions{
		GlobalOptions: DefaultGlobalOptions(),
		now:           time.Now,
		out:           os.Stdout,
	}
}

func NewCmdRun() *cobra.Command {
	o := DefaultRunOptions()
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Sync new survey responses into Podio once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.out = cmd.OutOrStdout()
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd.Context())
		},
		SilenceUsage: true,
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *RunOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.BoolVar(&o.DryRun, "dry-run", o.DryRun, "Print the transformed records instead of loading them.")
	fs.StringVar(&o.Since, "since", o.Since, "Only export responses recorded on or after this date (YYYY-MM-DD or RFC3339). Defaults to the last 24 hours.")
	fs.BoolVar(&o.All, "all", o.All, "Export every response of the surveys.")
	fs.StringVar(&o.Report, "report", o.Report, fmt.Sprintf("Write a run report to this file. One of: (%s).", strings.Join(legalReportExtensions, ", ")))
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	return o.completeSince()
}

func (o *RunOptions) completeSince() error {
	if o.All {
		o.since = nil
		return nil
	}
	if o.Since == "" {
		since := o.now().Add(-defaultWindow)
		o.since = &since
		return nil
	}
	for _, layout := range sinceLayouts {
		if t, err := time.Parse(layout, o.Since); err == nil {
			o.since = &t
			return nil
		}
	}
	return fmt.Errorf("invalid --since %q: expected YYYY-MM-DD or RFC3339", o.Since)
}

func (o *RunOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.All && o.Since != "" {
		return fmt.Errorf("--since and --all are mutually exclusive")
	}
	if o.Report != "" && !funk.ContainsString(legalReportExtensions, strings.ToLower(filepath.Ext(o.Report))) {
		return fmt.Errorf("report file must be one of: (%s)", strings.Join(legalReportExtensions, ", "))
	}
	return nil
}

func (o *RunOptions) Run(ctx context.Context) error {
	defer o.InitLogger()()
	log := zap.S().Named("run")
	log.Debugf("using config:\n%s", o.cfg)
	log.Infow("credentials loaded", "qualtrics_user", o.creds.Qualtrics.User, "password_grant", o.creds.Podio.UsePasswordGrant())

	client := qualtrics.NewClient(o.cfg.Qualtrics.BaseURL, o.creds.Qualtrics.Token, o.cfg.Qualtrics.RequestTimeout)
	poller := qualtrics.NewPoller(client,
		qualtrics.WithPollInterval(o.cfg.Qualtrics.PollInterval),
		qualtrics.WithPollAttempts(o.cfg.Qualtrics.PollAttempts),
		qualtrics.WithPollJitter(o.cfg.Qualtrics.PollJitter),
	)

	opts := []pipeline.Option{
		pipeline.WithSurveys(o.cfg.Qualtrics.ProjectSurveyID, o.cfg.Qualtrics.ConsultationSurveyID),
		pipeline.WithApps(o.creds.Podio.ProjectsAppID, o.creds.Podio.ConsultationsAppID),
		pipeline.WithReportBaseURL(o.cfg.Qualtrics.ReportBaseURL),
		pipeline.WithSince(o.since),
	}

	var recordLoader pipeline.RecordLoader
	if o.DryRun {
		opts = append(opts, pipeline.WithDryRun(o.out))
	} else {
		recordLoader = o.newLoader()
	}

	if o.cfg.ArchiveEnabled() {
		sink, err := archive.NewMinioSink(
			archive.WithEndpoint(o.cfg.Archive.Endpoint),
			archive.WithBucket(o.cfg.Archive.Bucket),
			archive.WithAccessKey(o.cfg.Archive.AccessKey),
			archive.WithSecretKey(o.cfg.Archive.SecretKey),
			archive.WithSSL(o.cfg.Archive.UseSSL),
		)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithArchive(sink))
	}

	var runReport *report.Report
	if o.Report != "" {
		r, err := report.New()
		if err != nil {
			return err
		}
		defer func() { _ = r.Close() }()
		runReport = r
		opts = append(opts, pipeline.WithReport(runReport))
	}

	exporter := qualtrics.NewExporter(client, poller,
		qualtrics.WithRequestAttempts(o.cfg.Qualtrics.PollAttempts),
		qualtrics.WithRequestDelay(o.cfg.Qualtrics.PollInterval),
	)
	summary := pipeline.NewOrchestrator(exporter, recordLoader, opts...).Run(ctx)

	if runReport != nil {
		if err := runReport.Save(o.Report); err != nil {
			log.Errorw("failed to save report", "error", err)
		} else {
			log.Infow("report written", "path", o.Report)
		}
	}
	if url := o.cfg.Metrics.PushgatewayURL; url != "" {
		if err := metrics.Push(ctx, url, o.cfg.Metrics.Job); err != nil {
			log.Warnw("failed to push metrics", "error", err)
		}
	}

	if _, err := fmt.Fprintf(o.out, "Consultations loaded: %d\nProjects loaded: %d\n", summary.ConsultationsLoaded(), summary.ProjectsLoaded()); err != nil {
		return err
	}
	return ctx.Err()
}

// newLoader returns a loader whose client authenticates on the first record,
// so a Podio outage fails the loads without stopping extraction.
func (o *RunOptions) newLoader() *loader.Loader {
	podioCreds := o.creds.Podio
	client := podio.NewSessionClient(o.cfg.Podio.BaseURL, podio.AuthOptions{
		TokenURL:     o.cfg.Podio.TokenURL,
		ClientID:     podioCreds.ClientID,
		ClientSecret: podioCreds.ClientSecret,
		AppID:        podioCreds.AppID,
		AppToken:     podioCreds.AppToken,
		Username:     podioCreds.Username,
		Password:     podioCreds.Password,
		Timeout:      o.cfg.Podio.RequestTimeout,
		Attempts:     o.cfg.Podio.AuthAttempts,
		RetryDelay:   o.cfg.Podio.RetryDelay,
	})

	return loader.NewLoader(client,
		loader.WithAttempts(o.cfg.Podio.LoadAttempts),
		loader.WithDelay(o.cfg.Podio.RetryDelay),
	)
}
