package qualtrics_test

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/idrk/project-data-sync/internal/qualtrics"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// scriptedSource answers each status call with the next scripted step.
type scriptedSource struct {
	steps []func() (*qualtrics.ExportStatus, error)
	calls int
}

func (s *scriptedSource) ExportStatus(ctx context.Context, statusURL string) (*qualtrics.ExportStatus, error) {
	step := s.steps[len(s.steps)-1]
	if s.calls < len(s.steps) {
		step = s.steps[s.calls]
	}
	s.calls++
	return step()
}

func progress(percent float64) func() (*qualtrics.ExportStatus, error) {
	return func() (*qualtrics.ExportStatus, error) {
		status := &qualtrics.ExportStatus{PercentComplete: percent}
		if percent >= 100 {
			status.FileURL = "https://example.qualtrics.com/file.zip"
		}
		return status, nil
	}
}

func failure(err error) func() (*qualtrics.ExportStatus, error) {
	return func() (*qualtrics.ExportStatus, error) {
		return nil, err
	}
}

var _ = Describe("export poller", func() {
	var handle *qualtrics.ExportHandle

	newPoller := func(source qualtrics.StatusSource) *qualtrics.Poller {
		return qualtrics.NewPoller(source,
			qualtrics.WithPollInterval(time.Millisecond),
			qualtrics.WithPollAttempts(20),
			qualtrics.WithPollJitter(0),
		)
	}

	BeforeEach(func() {
		handle = &qualtrics.ExportHandle{SurveyID: "SV_X", ExportID: "ES_1", StatusURL: "http://status"}
	})

	It("returns the download url once the export reaches 100%", func() {
		source := &scriptedSource{steps: []func() (*qualtrics.ExportStatus, error){
			progress(10), progress(60), progress(100),
		}}

		completed, err := newPoller(source).AwaitCompletion(context.TODO(), handle)
		Expect(err).To(BeNil())
		Expect(completed.SurveyID).To(Equal("SV_X"))
		Expect(completed.FileURL).To(Equal("https://example.qualtrics.com/file.zip"))
		Expect(source.calls).To(Equal(3))
	})

	It("tolerates retryable failures for 19 polls and succeeds on the 20th", func() {
		steps := []func() (*qualtrics.ExportStatus, error){}
		for i := 0; i < 19; i++ {
			steps = append(steps, failure(&qualtrics.APIError{Op: "export status", StatusCode: http.StatusServiceUnavailable}))
		}
		steps = append(steps, progress(100))
		source := &scriptedSource{steps: steps}

		completed, err := newPoller(source).AwaitCompletion(context.TODO(), handle)
		Expect(err).To(BeNil())
		Expect(completed).NotTo(BeNil())
		Expect(source.calls).To(Equal(20))
	})

	It("times out when the export never completes", func() {
		source := &scriptedSource{steps: []func() (*qualtrics.ExportStatus, error){progress(42)}}

		completed, err := newPoller(source).AwaitCompletion(context.TODO(), handle)
		Expect(completed).To(BeNil())
		Expect(errors.Is(err, qualtrics.ErrExportTimeout)).To(BeTrue())

		var timeoutErr *qualtrics.ExportTimeoutError
		Expect(errors.As(err, &timeoutErr)).To(BeTrue())
		Expect(timeoutErr.SurveyID).To(Equal("SV_X"))
		Expect(timeoutErr.Attempts).To(Equal(20))
		Expect(timeoutErr.Percent).To(Equal(42.0))
		Expect(source.calls).To(Equal(20))
	})

	It("times out when every poll fails with a retryable error", func() {
		source := &scriptedSource{steps: []func() (*qualtrics.ExportStatus, error){
			failure(qualtrics.ErrMalformedResponse),
		}}

		_, err := newPoller(source).AwaitCompletion(context.TODO(), handle)
		Expect(errors.Is(err, qualtrics.ErrExportTimeout)).To(BeTrue())
		Expect(source.calls).To(Equal(20))
	})

	It("stops at the first non retryable failure", func() {
		source := &scriptedSource{steps: []func() (*qualtrics.ExportStatus, error){
			failure(&qualtrics.APIError{Op: "export status", StatusCode: http.StatusUnauthorized}),
		}}

		_, err := newPoller(source).AwaitCompletion(context.TODO(), handle)
		Expect(err).NotTo(BeNil())
		Expect(errors.Is(err, qualtrics.ErrExportTimeout)).To(BeFalse())
		Expect(source.calls).To(Equal(1))
	})

	It("returns when the context is cancelled", func() {
		source := &scriptedSource{steps: []func() (*qualtrics.ExportStatus, error){progress(0)}}
		ctx, cancel := context.WithCancel(context.TODO())
		cancel()

		poller := qualtrics.NewPoller(source, qualtrics.WithPollInterval(time.Hour))
		_, err := poller.AwaitCompletion(ctx, handle)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(source.calls).To(Equal(0))
	})
})
