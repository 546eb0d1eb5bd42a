package metrics_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/idrk/project-data-sync/pkg/metrics"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(name string, labels map[string]string) float64 {
	families, err := metrics.Gatherer().Gather()
	Expect(err).NotTo(HaveOccurred())
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	for _, pair := range m.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok && want != pair.GetValue() {
			return false
		}
	}
	return true
}

var _ = Describe("run metrics", func() {
	It("counts records per family", func() {
		before := counterValue("project_sync_records_loaded_total", map[string]string{"family": "projects"})
		metrics.IncreaseRecordsLoadedMetric("projects", 3)
		Expect(counterValue("project_sync_records_loaded_total", map[string]string{"family": "projects"})).To(Equal(before + 3))
	})

	It("counts exports per outcome", func() {
		labels := map[string]string{"family": "consultations", "outcome": "timeout"}
		before := counterValue("project_sync_exports_total", labels)
		metrics.IncreaseExportsMetric("consultations", "timeout")
		Expect(counterValue("project_sync_exports_total", labels)).To(Equal(before + 1))
	})

	It("pushes to the gateway under the job name", func() {
		var (
			method string
			path   string
			body   []byte
		)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			path = r.URL.Path
			body, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		metrics.IncreaseRecordsFailedMetric("projects", 1)
		metrics.UpdateRunMetrics(2*time.Second, time.Now())
		Expect(metrics.Push(context.TODO(), server.URL, "project_sync")).To(Succeed())

		Expect(method).To(Equal(http.MethodPut))
		Expect(path).To(Equal("/metrics/job/project_sync"))
		Expect(body).NotTo(BeEmpty())
	})

	It("reports a gateway failure", func() {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		Expect(metrics.Push(context.TODO(), server.URL, "project_sync")).NotTo(Succeed())
	})
})
