package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 30*time.Minute, cfg.LMS.TokenTTL)
	assert.Equal(t, "/success-close", cfg.LMS.SuccessRedirect)
	assert.Equal(t, StorageDriverLocal, cfg.GradeSync.StorageDriver)
	assert.Equal(t, 1, cfg.GradeSync.WorkerConcurrency)
	assert.Equal(t, 2*time.Hour, cfg.GradeSync.RunningMarkerTTL)
	assert.False(t, cfg.LMS.Configured())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LMS_ENABLED", "true")
	t.Setenv("LMS_CLIENT_ID", "client")
	t.Setenv("LMS_CLIENT_SECRET", "secret")
	t.Setenv("LMS_REDIRECT_URI", "https://assessments.example.edu/api/v1/lms/callback")
	t.Setenv("LMS_API_HOST", "https://lms.example.edu/")
	t.Setenv("LMS_TOKEN_TTL", "45m")
	t.Setenv("LMS_HTTP_TIMEOUT", "not-a-duration")
	t.Setenv("GRADESYNC_WORKER_CONCURRENCY", "0")
	t.Setenv("GRADESYNC_STORAGE_DRIVER", "S3")
	t.Setenv("GRADESYNC_PUBLIC_BASE_URL", "https://assessments.example.edu/")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.edu, ,https://b.example.edu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.LMS.Configured())
	assert.Equal(t, "https://lms.example.edu", cfg.LMS.APIHost)
	assert.Equal(t, 45*time.Minute, cfg.LMS.TokenTTL)
	assert.Equal(t, 30*time.Second, cfg.LMS.HTTPTimeout)
	assert.Equal(t, 1, cfg.GradeSync.WorkerConcurrency)
	assert.Equal(t, StorageDriverS3, cfg.GradeSync.StorageDriver)
	assert.Equal(t, "https://assessments.example.edu", cfg.GradeSync.PublicBaseURL)
	assert.Equal(t, []string{"https://a.example.edu", "https://b.example.edu"}, cfg.CORS.AllowedOrigins)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}

func TestLMSConfiguredRequiresRedirectURI(t *testing.T) {
	cfg := LMSConfig{
		Enabled:      true,
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "https://assessments.example.edu/api/v1/lms/callback",
		APIHost:      "https://lms.example.edu",
		TokenURL:     "https://auth.example.edu/token",
	}
	assert.True(t, cfg.Configured())

	cfg.RedirectURI = ""
	assert.False(t, cfg.Configured())

	cfg.RedirectURI = "https://assessments.example.edu/api/v1/lms/callback"
	cfg.Enabled = false
	assert.False(t, cfg.Configured())
}
