package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingTB captures what the helpers ask of the test without stopping it.
type recordingTB struct {
	skipped bool
	failed  bool
	msg     string
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Skip(args ...any) { r.skipped, r.msg = true, fmt.Sprint(args...) }

func (r *recordingTB) Skipf(format string, args ...any) {
	r.skipped, r.msg = true, fmt.Sprintf(format, args...)
}

func (r *recordingTB) Fatal(args ...any) { r.failed, r.msg = true, fmt.Sprint(args...) }

func (r *recordingTB) Fatalf(format string, args ...any) {
	r.failed, r.msg = true, fmt.Sprintf(format, args...)
}

func (r *recordingTB) Logf(string, ...any) {}

func TestDefaultTestDBConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want TestDBConfig
	}{
		{
			name: "local defaults",
			want: TestDBConfig{Host: "localhost", Port: "55432", User: "accounts", Password: "accounts", DBName: "accounts"},
		},
		{
			name: "ci overrides",
			env: map[string]string{
				"TEST_DB_HOST": "postgres",
				"TEST_DB_PORT": "5432",
				"TEST_DB_NAME": "accounts_ci",
			},
			want: TestDBConfig{Host: "postgres", Port: "5432", User: "accounts", Password: "accounts", DBName: "accounts_ci"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"TEST_DB_HOST", "TEST_DB_PORT", "TEST_DB_USER", "TEST_DB_PASSWORD", "TEST_DB_NAME"} {
				t.Setenv(key, tt.env[key])
			}
			assert.Equal(t, tt.want, DefaultTestDBConfig())
		})
	}
}

func TestTestDBConfig_DSN(t *testing.T) {
	cfg := TestDBConfig{Host: "db", Port: "5432", User: "u", Password: "p@ss", DBName: "accounts"}

	t.Setenv("DB_SSL_MODE", "")
	assert.Equal(t, "postgres://u:p%40ss@db:5432/accounts?sslmode=disable", cfg.DSN())

	t.Setenv("DB_SSL_MODE", "require")
	assert.Equal(t, "postgres://u:p%40ss@db:5432/accounts?sslmode=require", cfg.DSN())
}

func TestRequireFlags(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		wantDB    bool
		wantRedis bool
	}{
		{name: "nothing set"},
		{name: "db only", env: map[string]string{"TEST_REQUIRE_DB": "true"}, wantDB: true},
		{name: "redis only", env: map[string]string{"TEST_REQUIRE_REDIS": "1"}, wantRedis: true},
		{name: "all infra", env: map[string]string{"TEST_REQUIRE_INFRA": "yes"}, wantDB: true, wantRedis: true},
		{name: "falsy values", env: map[string]string{"TEST_REQUIRE_DB": "no", "TEST_REQUIRE_REDIS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"TEST_REQUIRE_DB", "TEST_REQUIRE_REDIS", "TEST_REQUIRE_INFRA"} {
				t.Setenv(key, tt.env[key])
			}
			assert.Equal(t, tt.wantDB, requireDB())
			assert.Equal(t, tt.wantRedis, requireRedis())
		})
	}
}

func TestSkipOrFail(t *testing.T) {
	optional := &recordingTB{}
	skipOrFail(optional, false, "Redis not available for testing")
	assert.True(t, optional.skipped)
	assert.False(t, optional.failed)
	assert.Equal(t, "Redis not available for testing", optional.msg)

	required := &recordingTB{}
	skipOrFail(required, true, "Redis not available for testing")
	assert.True(t, required.failed)
	assert.False(t, required.skipped)
}

func TestSelectTestRedisDB_FromEnv(t *testing.T) {
	t.Setenv("TEST_REDIS_DB", "7")
	require.Equal(t, 7, selectTestRedisDB(&recordingTB{}, "127.0.0.1:1"))
}
