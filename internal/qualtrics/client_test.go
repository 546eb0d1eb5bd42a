package qualtrics_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"github.com/idrk/project-data-sync/internal/qualtrics"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("qualtrics client", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("CreateExport", func() {
		It("requests a json export scoped to the start date", func() {
			var received map[string]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodPost))
				Expect(r.URL.Path).To(Equal("/API/v3/responseexports"))
				Expect(r.Header.Get("X-API-TOKEN")).To(Equal("tok"))
				Expect(r.Header.Get("Content-Type")).To(Equal("application/json"))
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())

				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(`{"result": {"id": "ES_123", "percentComplete": 0}}`))
			}))
			defer server.Close()

			since := time.Date(2020, 1, 1, 8, 0, 0, 0, time.UTC)
			client := qualtrics.NewClient(server.URL+"/API/v3/", "tok", 5*time.Second)
			handle, err := client.CreateExport(ctx, "SV_X", &since)

			Expect(err).To(BeNil())
			Expect(handle.ExportID).To(Equal("ES_123"))
			Expect(handle.SurveyID).To(Equal("SV_X"))
			Expect(handle.StatusURL).To(Equal(server.URL + "/API/v3/responseexports/ES_123"))
			Expect(received).To(HaveKeyWithValue("surveyId", "SV_X"))
			Expect(received).To(HaveKeyWithValue("format", "json"))
			Expect(received).To(HaveKeyWithValue("startDate", "2020-01-01T08:00:00Z"))
		})

		It("omits the start date when pulling everything", func() {
			var received map[string]string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(json.NewDecoder(r.Body).Decode(&received)).To(Succeed())
				_, _ = w.Write([]byte(`{"result": {"id": "ES_1"}}`))
			}))
			defer server.Close()

			_, err := qualtrics.NewClient(server.URL, "tok", 0).CreateExport(ctx, "SV_X", nil)
			Expect(err).To(BeNil())
			Expect(received).NotTo(HaveKey("startDate"))
		})

		It("returns a non retryable api error on 401", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"meta": {"error": "bad token"}}`))
			}))
			defer server.Close()

			_, err := qualtrics.NewClient(server.URL, "tok", 0).CreateExport(ctx, "SV_X", nil)
			var apiErr *qualtrics.APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
			Expect(err.Error()).To(ContainSubstring("bad token"))
			Expect(qualtrics.IsRetryable(err)).To(BeFalse())
		})

		It("rejects an answer without export id", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"result": {}}`))
			}))
			defer server.Close()

			_, err := qualtrics.NewClient(server.URL, "tok", 0).CreateExport(ctx, "SV_X", nil)
			Expect(err).To(MatchError(ContainSubstring("missing export id")))
		})
	})

	Describe("ExportStatus", func() {
		It("reads the progress and the file url", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Method).To(Equal(http.MethodGet))
				fmt.Fprintf(w, `{"result": {"percentComplete": 100, "status": "complete", "file": "%s/file"}}`, "http://files")
			}))
			defer server.Close()

			status, err := qualtrics.NewClient(server.URL, "tok", 0).ExportStatus(ctx, server.URL+"/responseexports/ES_1")
			Expect(err).To(BeNil())
			Expect(status.Done()).To(BeTrue())
			Expect(status.FileURL).To(Equal("http://files/file"))
		})

		It("marks server errors and garbage as retryable", func() {
			var calls int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if atomic.AddInt32(&calls, 1) == 1 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				_, _ = w.Write([]byte(`<html>`))
			}))
			defer server.Close()

			client := qualtrics.NewClient(server.URL, "tok", 0)
			_, err := client.ExportStatus(ctx, server.URL)
			Expect(qualtrics.IsRetryable(err)).To(BeTrue())

			_, err = client.ExportStatus(ctx, server.URL)
			Expect(err).To(MatchError(qualtrics.ErrMalformedResponse))
			Expect(qualtrics.IsRetryable(err)).To(BeTrue())
		})

		It("treats an unreachable server as retryable", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			url := server.URL
			server.Close()

			_, err := qualtrics.NewClient(url, "tok", time.Second).ExportStatus(ctx, url)
			Expect(err).NotTo(BeNil())
			Expect(qualtrics.IsRetryable(err)).To(BeTrue())
		})
	})

	Describe("Download", func() {
		It("returns the archive bytes", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				Expect(r.Header.Get("X-API-TOKEN")).To(Equal("tok"))
				_, _ = w.Write([]byte("PK-bytes"))
			}))
			defer server.Close()

			data, err := qualtrics.NewClient(server.URL, "tok", 0).Download(ctx, server.URL+"/file")
			Expect(err).To(BeNil())
			Expect(string(data)).To(Equal("PK-bytes"))
		})

		It("fails on not found", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			defer server.Close()

			_, err := qualtrics.NewClient(server.URL, "tok", 0).Download(ctx, server.URL+"/file")
			var apiErr *qualtrics.APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
		})
	})

	Describe("Exporter", func() {
		It("runs request, poll and download against one server", func() {
			var polls int32
			var server *httptest.Server
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				switch {
				case r.Method == http.MethodPost:
					_, _ = w.Write([]byte(`{"result": {"id": "ES_9"}}`))
				case r.URL.Path == "/responseexports/ES_9":
					if atomic.AddInt32(&polls, 1) < 3 {
						_, _ = w.Write([]byte(`{"result": {"percentComplete": 50}}`))
						return
					}
					fmt.Fprintf(w, `{"result": {"percentComplete": 100, "file": "%s/responseexports/ES_9/file"}}`, server.URL)
				case r.URL.Path == "/responseexports/ES_9/file":
					_, _ = w.Write(singleFile(`{"responses": [{"ResponseID": "R_1"}]}`))
				default:
					w.WriteHeader(http.StatusNotFound)
				}
			}))
			defer server.Close()

			client := qualtrics.NewClient(server.URL, "tok", 0)
			exporter := qualtrics.NewExporter(client, qualtrics.NewPoller(client,
				qualtrics.WithPollInterval(time.Millisecond), qualtrics.WithPollJitter(0)))

			handle, err := exporter.RequestExport(ctx, "SV_X", nil)
			Expect(err).To(BeNil())
			completed, err := exporter.AwaitCompletion(ctx, handle)
			Expect(err).To(BeNil())
			data, err := exporter.Download(ctx, completed)
			Expect(err).To(BeNil())

			responses, err := qualtrics.Decode(data)
			Expect(err).To(BeNil())
			Expect(responses[0].ID()).To(Equal("R_1"))
			Expect(atomic.LoadInt32(&polls)).To(Equal(int32(3)))
		})

		DescribeTable("requesting an export",
			func(status int, failures int32, succeeds bool, calls int32) {
				var posts int32
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					if atomic.AddInt32(&posts, 1) <= failures {
						w.WriteHeader(status)
						return
					}
					_, _ = w.Write([]byte(`{"result": {"id": "ES_9"}}`))
				}))
				defer server.Close()

				client := qualtrics.NewClient(server.URL, "tok", 0)
				exporter := qualtrics.NewExporter(client, qualtrics.NewPoller(client),
					qualtrics.WithRequestAttempts(3), qualtrics.WithRequestDelay(time.Millisecond))

				handle, err := exporter.RequestExport(ctx, "SV_X", nil)
				if succeeds {
					Expect(err).To(BeNil())
					Expect(handle.ExportID).To(Equal("ES_9"))
				} else {
					var apiErr *qualtrics.APIError
					Expect(errors.As(err, &apiErr)).To(BeTrue())
					Expect(apiErr.StatusCode).To(Equal(status))
				}
				Expect(atomic.LoadInt32(&posts)).To(Equal(calls))
			},
			Entry("recovers from a server error", http.StatusServiceUnavailable, int32(1), true, int32(2)),
			Entry("recovers from throttling", http.StatusTooManyRequests, int32(2), true, int32(3)),
			Entry("gives up after the attempts", http.StatusBadGateway, int32(5), false, int32(3)),
			Entry("does not retry a rejected request", http.StatusBadRequest, int32(1), false, int32(1)),
		)
	})
})
