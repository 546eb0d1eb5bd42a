package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/idrk/project-data-sync/internal/config"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func setEnv(key, value string) {
	old, found := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if found {
			_ = os.Setenv(key, old)
			return
		}
		_ = os.Unsetenv(key)
	})
}

var _ = Describe("config", func() {
	Context("New", func() {
		It("applies the defaults", func() {
			setEnv("QUALTRICS_PROJECT_SURVEY_ID", "SV_projects")
			setEnv("QUALTRICS_CONSULTATION_SURVEY_ID", "SV_consults")

			cfg, err := config.New()
			Expect(err).To(BeNil())
			Expect(cfg.Qualtrics.PollInterval).To(Equal(5 * time.Second))
			Expect(cfg.Qualtrics.PollAttempts).To(Equal(20))
			Expect(cfg.Qualtrics.PollJitter).To(Equal(100 * time.Millisecond))
			Expect(cfg.Podio.LoadAttempts).To(Equal(20))
			Expect(cfg.Podio.AuthAttempts).To(Equal(5))
			Expect(cfg.LogLevel).To(Equal("info"))
			Expect(cfg.ArchiveEnabled()).To(BeFalse())
		})

		It("fails with a configuration error when a survey id is missing", func() {
			setEnv("QUALTRICS_PROJECT_SURVEY_ID", "SV_projects")
			setEnv("QUALTRICS_CONSULTATION_SURVEY_ID", "")

			_, err := config.New()
			Expect(err).NotTo(BeNil())
			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("requires archive keys once an endpoint is set", func() {
			setEnv("QUALTRICS_PROJECT_SURVEY_ID", "SV_projects")
			setEnv("QUALTRICS_CONSULTATION_SURVEY_ID", "SV_consults")
			setEnv("PROJECT_SYNC_ARCHIVE_ENDPOINT", "minio.local:9000")

			_, err := config.New()
			Expect(err).NotTo(BeNil())
		})

		It("masks the archive secret", func() {
			setEnv("QUALTRICS_PROJECT_SURVEY_ID", "SV_projects")
			setEnv("QUALTRICS_CONSULTATION_SURVEY_ID", "SV_consults")
			setEnv("PROJECT_SYNC_ARCHIVE_ENDPOINT", "minio.local:9000")
			setEnv("PROJECT_SYNC_ARCHIVE_ACCESS_KEY", "access")
			setEnv("PROJECT_SYNC_ARCHIVE_SECRET_KEY", "very-secret")

			cfg, err := config.New()
			Expect(err).To(BeNil())
			Expect(cfg.ArchiveEnabled()).To(BeTrue())
			Expect(cfg.String()).NotTo(ContainSubstring("very-secret"))
			Expect(cfg.Archive.SecretKey).To(Equal("very-secret"))
		})
	})

	Context("LoadCredentials", func() {
		var (
			dir string
			cfg *config.Config
		)

		writeFile := func(name, content string) string {
			p := filepath.Join(dir, name)
			Expect(os.WriteFile(p, []byte(content), 0600)).To(Succeed())
			return p
		}

		BeforeEach(func() {
			dir = GinkgoT().TempDir()
			setEnv("QUALTRICS_PROJECT_SURVEY_ID", "SV_projects")
			setEnv("QUALTRICS_CONSULTATION_SURVEY_ID", "SV_consults")

			var err error
			cfg, err = config.New()
			Expect(err).To(BeNil())

			cfg.Qualtrics.UserFile = writeFile("qualtrics_user", "jdoe\n")
			cfg.Qualtrics.TokenFile = writeFile("qualtrics_token", "tok-123 \nignored\n")
		})

		It("reads the password grant credentials", func() {
			cfg.Podio.ConfigFile = writeFile("idrk.cfg", `[APIKey]
etl = project-sync
key = s3cr3t
projects = 1001
consultations = 1002
username = bot@example.com
password = hunter2
`)
			creds, err := config.LoadCredentials(cfg)
			Expect(err).To(BeNil())
			Expect(creds.Qualtrics.User).To(Equal("jdoe"))
			Expect(creds.Qualtrics.Token).To(Equal("tok-123"))
			Expect(creds.Podio.ClientID).To(Equal("project-sync"))
			Expect(creds.Podio.ProjectsAppID).To(Equal(int64(1001)))
			Expect(creds.Podio.ConsultationsAppID).To(Equal(int64(1002)))
			Expect(creds.Podio.UsePasswordGrant()).To(BeTrue())
		})

		It("reads the app grant credentials", func() {
			cfg.Podio.ConfigFile = writeFile("idrk.cfg", `[APIKey]
etl = project-sync
key = s3cr3t
app = 42
app_token = apptok
projects = 1001
consultations = 1002
`)
			creds, err := config.LoadCredentials(cfg)
			Expect(err).To(BeNil())
			Expect(creds.Podio.UsePasswordGrant()).To(BeFalse())
			Expect(creds.Podio.AppToken).To(Equal("apptok"))
		})

		It("fails when neither grant is configured", func() {
			cfg.Podio.ConfigFile = writeFile("idrk.cfg", `[APIKey]
etl = project-sync
key = s3cr3t
projects = 1001
consultations = 1002
`)
			_, err := config.LoadCredentials(cfg)
			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
		})

		It("fails when the APIKey section is missing", func() {
			cfg.Podio.ConfigFile = writeFile("idrk.cfg", "[Other]\nfoo = bar\n")
			_, err := config.LoadCredentials(cfg)
			var cfgErr *config.ConfigurationError
			Expect(errors.As(err, &cfgErr)).To(BeTrue())
			Expect(cfgErr.Source).To(Equal(cfg.Podio.ConfigFile))
		})

		It("fails on an empty token file", func() {
			cfg.Qualtrics.TokenFile = writeFile("qualtrics_token", "")
			cfg.Podio.ConfigFile = writeFile("idrk.cfg", "[APIKey]\n")
			_, err := config.LoadCredentials(cfg)
			Expect(errors.Is(err, config.ErrEmptyCredentialFile)).To(BeTrue())
		})

		It("fails on a missing user file", func() {
			cfg.Qualtrics.UserFile = filepath.Join(dir, "missing")
			_, err := config.LoadCredentials(cfg)
			Expect(errors.Is(err, os.ErrNotExist)).To(BeTrue())
		})
	})
})
