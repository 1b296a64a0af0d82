package hcl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/juanfont/pgvm/driver"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customHCL = `{
    "timestamp": 1700000000,
    "controller": [{"vid": "1000"}],
    "jsonUpdatedTime": "November 1, 2023, 9:00 AM PST"
}`

const vendorHCL = `{"data": {"controller": []}, "timestamp": 1733904000, "jsonUpdatedTime": "December 11, 2024, 8:00 AM PST"}`

func newVendor(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type fakeRunner struct {
	name   string
	args   []string
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return []byte(f.stdout), []byte(f.stderr), f.err
}

func TestPrepare(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "customhcl", []byte(customHCL), 0o644))

	require.NoError(t, Prepare(fs, "customhcl", "json/customhcl.json"))
	data, err := afero.ReadFile(fs, "json/customhcl.json")
	require.NoError(t, err)
	assert.Equal(t, customHCL, string(data))

	err = Prepare(fs, "missing", "json/customhcl.json")
	assert.ErrorIs(t, err, ErrSourceMissing)
}

func TestFetch(t *testing.T) {
	srv := newVendor(t, http.StatusOK, vendorHCL)

	stamp, err := NewFetcher(srv.URL, 0).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1733904000", stampString(stamp.Timestamp))
	assert.Equal(t, "December 11, 2024, 8:00 AM PST", stamp.UpdatedTime)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target error
	}{
		{name: "not found", status: http.StatusNotFound, body: "nope"},
		{name: "missing timestamp", status: http.StatusOK, body: `{"jsonUpdatedTime": "x"}`, target: ErrMissingStamp},
		{name: "null updated time", status: http.StatusOK, body: `{"timestamp": 1, "jsonUpdatedTime": null}`, target: ErrMissingStamp},
		{name: "not json", status: http.StatusOK, body: "<html>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newVendor(t, tt.status, tt.body)
			_, err := NewFetcher(srv.URL, 0).Fetch(context.Background())
			require.Error(t, err)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestSplice(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "json/customhcl.json", []byte(customHCL), 0o644))

	stamp := &Stamp{Timestamp: json1733904000(), UpdatedTime: "December 11, 2024, 8:00 AM PST"}

	diff, err := Splice(fs, "json/customhcl.json", stamp, true)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", stampString(diff.OldTimestamp))
	assert.Equal(t, "November 1, 2023, 9:00 AM PST", diff.OldUpdatedTime)

	// dry run leaves the file alone
	data, err := afero.ReadFile(fs, "json/customhcl.json")
	require.NoError(t, err)
	assert.Equal(t, customHCL, string(data))

	_, err = Splice(fs, "json/customhcl.json", stamp, false)
	require.NoError(t, err)
	data, err = afero.ReadFile(fs, "json/customhcl.json")
	require.NoError(t, err)
	assert.Equal(t, `{
    "timestamp": 1733904000,
    "controller": [
        {
            "vid": "1000"
        }
    ],
    "jsonUpdatedTime": "December 11, 2024, 8:00 AM PST"
}
`, string(data))
}

func TestSpliceAppendsMissingFields(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "hcl.json", []byte(`{"controller": []}`), 0o644))

	diff, err := Splice(fs, "hcl.json", &Stamp{Timestamp: json1733904000(), UpdatedTime: "now"}, false)
	require.NoError(t, err)
	assert.Nil(t, diff.OldTimestamp)

	data, err := afero.ReadFile(fs, "hcl.json")
	require.NoError(t, err)
	assert.Equal(t, "{\n    \"controller\": [],\n    \"timestamp\": 1733904000,\n    \"jsonUpdatedTime\": \"now\"\n}\n", string(data))
}

func TestSpliceMissingFile(t *testing.T) {
	_, err := Splice(afero.NewMemMapFs(), "json/customhcl.json", &Stamp{}, false)
	assert.ErrorIs(t, err, ErrHCLMissing)
}

func TestBackup(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, Backup(fs, "json/customhcl.json", DefaultBackup))
	exists, err := afero.Exists(fs, DefaultBackup)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, afero.WriteFile(fs, "json/customhcl.json", []byte(customHCL), 0o644))
	require.NoError(t, Backup(fs, "json/customhcl.json", DefaultBackup))
	data, err := afero.ReadFile(fs, DefaultBackup)
	require.NoError(t, err)
	assert.Equal(t, customHCL, string(data))
}

func vcenterCreds() *driver.ConnectConfig {
	return &driver.ConnectConfig{Host: "vc01.lab.local", Username: "administrator@vsphere.local", Password: "pw"}
}

func TestApply(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "json/customhcl.json", []byte(customHCL), 0o644))
	runner := &fakeRunner{stdout: "HCL uploaded\n"}
	a := &Applier{Fs: fs, Runner: runner}

	out, err := a.Apply(context.Background(), vcenterCreds(), "json/customhcl.json")
	require.NoError(t, err)
	assert.Equal(t, "HCL uploaded\n", out)
	assert.Equal(t, "pwsh", runner.name)
	assert.Equal(t, []string{
		"-NoProfile", "-ExecutionPolicy", "Bypass", "-File", "hclvcenter.ps1",
		"vc01.lab.local", "administrator@vsphere.local", "pw", "json/customhcl.json",
	}, runner.args)
}

func TestApplyFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "json/customhcl.json", []byte(customHCL), 0o644))

	t.Run("non-zero exit", func(t *testing.T) {
		a := &Applier{Fs: fs, Runner: &fakeRunner{stderr: "Connect-VIServer failed\n", err: &ExitError{Code: 1}}}
		_, err := a.Apply(context.Background(), vcenterCreds(), "json/customhcl.json")
		assert.ErrorIs(t, err, ErrApplyFailed)
		assert.Contains(t, err.Error(), "Connect-VIServer failed")
	})

	t.Run("missing binary", func(t *testing.T) {
		a := &Applier{Fs: fs, Runner: &fakeRunner{err: errors.New("executable file not found")}}
		_, err := a.Apply(context.Background(), vcenterCreds(), "json/customhcl.json")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrApplyFailed)
	})

	t.Run("missing hcl", func(t *testing.T) {
		runner := &fakeRunner{}
		a := &Applier{Fs: fs, Runner: runner}
		_, err := a.Apply(context.Background(), vcenterCreds(), "json/other.json")
		assert.ErrorIs(t, err, ErrHCLMissing)
		assert.Empty(t, runner.name)
	})

	t.Run("incomplete credentials", func(t *testing.T) {
		runner := &fakeRunner{}
		a := &Applier{Fs: fs, Runner: runner}
		_, err := a.Apply(context.Background(), &driver.ConnectConfig{Host: "vc01"}, "json/customhcl.json")
		require.Error(t, err)
		assert.Empty(t, runner.name)
	})
}

func TestUpdaterRun(t *testing.T) {
	srv := newVendor(t, http.StatusOK, vendorHCL)

	t.Run("test mode writes nothing", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "customhcl", []byte(customHCL), 0o644))
		u := &Updater{Fs: fs, Fetcher: NewFetcher(srv.URL, 0)}

		result, err := u.Run(context.Background(), Options{Test: true})
		require.NoError(t, err)
		assert.Equal(t, "December 11, 2024, 8:00 AM PST", result.Diff.NewUpdatedTime)

		data, err := afero.ReadFile(fs, DefaultDest)
		require.NoError(t, err)
		assert.Equal(t, customHCL, string(data))
		exists, err := afero.Exists(fs, DefaultBackup)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("update and apply", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "customhcl", []byte(customHCL), 0o644))
		runner := &fakeRunner{stdout: "ok"}
		u := &Updater{Fs: fs, Fetcher: NewFetcher(srv.URL, 0), Applier: &Applier{Fs: fs, Runner: runner}}

		result, err := u.Run(context.Background(), Options{
			UpdateVCenter: true,
			Credentials:   func() (*driver.ConnectConfig, error) { return vcenterCreds(), nil },
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", result.ApplyOutput)
		assert.Equal(t, DefaultBackup, result.BackupPath)

		backup, err := afero.ReadFile(fs, DefaultBackup)
		require.NoError(t, err)
		assert.Equal(t, customHCL, string(backup))

		data, err := afero.ReadFile(fs, DefaultDest)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"timestamp": 1733904000`)
		assert.Equal(t, DefaultDest, runner.args[len(runner.args)-1])
	})

	t.Run("failed apply keeps the stamped file", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "customhcl", []byte(customHCL), 0o644))
		runner := &fakeRunner{stderr: "boom", err: &ExitError{Code: 1}}
		u := &Updater{Fs: fs, Fetcher: NewFetcher(srv.URL, 0), Applier: &Applier{Fs: fs, Runner: runner}}

		_, err := u.Run(context.Background(), Options{
			UpdateVCenter: true,
			Credentials:   func() (*driver.ConnectConfig, error) { return vcenterCreds(), nil },
		})
		assert.ErrorIs(t, err, ErrApplyFailed)

		data, err := afero.ReadFile(fs, DefaultDest)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"timestamp": 1733904000`)
	})

	t.Run("credential errors stop the run", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fs, "customhcl", []byte(customHCL), 0o644))
		u := &Updater{Fs: fs, Fetcher: NewFetcher(srv.URL, 0)}

		_, err := u.Run(context.Background(), Options{
			UpdateVCenter: true,
			Credentials:   func() (*driver.ConnectConfig, error) { return nil, errors.New("no profile") },
		})
		require.Error(t, err)
		assert.Equal(t, "no profile", err.Error())

		_, err = u.Run(context.Background(), Options{UpdateVCenter: true})
		require.Error(t, err)
	})

	t.Run("missing source stops before fetching", func(t *testing.T) {
		u := &Updater{Fs: afero.NewMemMapFs(), Fetcher: NewFetcher("http://127.0.0.1:1", 0)}
		_, err := u.Run(context.Background(), Options{})
		assert.ErrorIs(t, err, ErrSourceMissing)
	})
}

func json1733904000() interface{} {
	return jsondoc.Number("1733904000")
}

func stampString(v interface{}) string {
	if n, ok := v.(jsondoc.Number); ok {
		return n.String()
	}
	return ""
}
