package profile

import (
	"testing"
	"time"

	"github.com/juanfont/pgvm/backup"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, maxBackups int) (afero.Fs, *Store) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := NewStore(fs, "/home/op/.pgvm/", maxBackups)
	require.NoError(t, err)
	return fs, s
}

func mustObject(t *testing.T, doc string) *jsondoc.Object {
	t.Helper()
	v, err := jsondoc.DecodeBytes([]byte(doc))
	require.NoError(t, err)
	obj, ok := v.(*jsondoc.Object)
	require.True(t, ok)
	return obj
}

func TestPaths(t *testing.T) {
	_, s := newStore(t, 0)

	assert.Equal(t, "/home/op/.pgvm", s.Root())
	assert.Equal(t, "/home/op/.pgvm/cred.json", s.CredPath(""))
	assert.Equal(t, "/home/op/.pgvm/lab01/cred.json", s.CredPath("lab01"))
	assert.Equal(t, "tools/scripts/hclupdate/hclupdate-cred.json", BaseStructurePath("tools", "hclupdate"))
}

func TestListAndCreate(t *testing.T) {
	fs, s := newStore(t, 0)

	profiles, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, profiles)

	for _, name := range []string{"zeta", "lab01", "alpha"} {
		_, err := s.Create(name)
		require.NoError(t, err)
	}
	require.NoError(t, afero.WriteFile(fs, "/home/op/.pgvm/cred.json", []byte(`{}`), 0o600))
	require.NoError(t, fs.MkdirAll("/home/op/.pgvm/backup", 0o700))

	profiles, err = s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "lab01", "zeta"}, profiles)

	// creating twice is fine
	_, err = s.Create("lab01")
	assert.NoError(t, err)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{name: "lab01", valid: true},
		{name: "vsan-8u3", valid: true},
		{name: "", valid: false},
		{name: "  ", valid: false},
		{name: ".", valid: false},
		{name: "..", valid: false},
		{name: "a/b", valid: false},
		{name: "backup", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidName)
			}
		})
	}
}

func TestLoadSave(t *testing.T) {
	_, s := newStore(t, 0)

	_, err := s.Load("lab01")
	assert.ErrorIs(t, err, ErrCredNotFound)

	doc := mustObject(t, `{"vcenter": {"VCENTER_SERVER": "vc01"}}`)
	require.NoError(t, s.Save("lab01", doc))

	loaded, err := s.Load("lab01")
	require.NoError(t, err)
	assert.Equal(t, jsondoc.Format(doc), jsondoc.Format(loaded))
}

func TestBackupRotation(t *testing.T) {
	fs, s := newStore(t, 3)

	path, err := s.Backup("lab01")
	require.NoError(t, err)
	assert.Empty(t, path)

	require.NoError(t, s.Save("lab01", jsondoc.NewObject()))

	now := time.Date(2025, 1, 2, 15, 4, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	for i := 0; i < 5; i++ {
		now = now.Add(time.Second)
		_, err := s.Backup("lab01")
		require.NoError(t, err)
	}

	entries, err := afero.ReadDir(fs, "/home/op/.pgvm/lab01/backup")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"cred_20250102150403.json", "cred_20250102150404.json", "cred_20250102150405.json"}, names)
}

func TestVCenterConfig(t *testing.T) {
	config, err := VCenterConfig(mustObject(t, `{"vcenter": {"VCENTER_SERVER": "vc01", "VCENTER_USER": "admin", "VCENTER_PASSWORD": "pw"}}`))
	require.NoError(t, err)
	assert.Equal(t, "vc01", config.Host)
	assert.Equal(t, "admin", config.Username)
	assert.Equal(t, "pw", config.Password)
	assert.True(t, config.InsecureConnection)

	_, err = VCenterConfig(mustObject(t, `{"vcd": {}}`))
	assert.ErrorIs(t, err, ErrIncompleteCredentials)

	_, err = VCenterConfig(mustObject(t, `{"vcenter": {"VCENTER_SERVER": "vc01", "VCENTER_USER": ""}}`))
	require.ErrorIs(t, err, ErrIncompleteCredentials)
	assert.Contains(t, err.Error(), "VCENTER_USER, VCENTER_PASSWORD")
}

func TestVCD(t *testing.T) {
	_, s := newStore(t, 0)
	require.NoError(t, s.Save("lab01", mustObject(t, `{"vcd": {"VCD_HOST": "vcd01", "VCD_ORG": "lab", "VCD_TOKEN": "t", "VCD_INSECURE": true}}`)))

	creds, err := s.VCD("lab01")
	require.NoError(t, err)
	assert.Equal(t, "vcd01", creds.Host)
	assert.Equal(t, "lab", creds.Org)
	assert.Equal(t, "t", creds.Token)
	assert.True(t, creds.InsecureConnection)

	assert.Equal(t, &VCDCredentials{}, VCDConfig(jsondoc.NewObject()))
}

func TestIsSecretKey(t *testing.T) {
	assert.True(t, IsSecretKey("VCENTER_PASSWORD"))
	assert.True(t, IsSecretKey("api_token"))
	assert.True(t, IsSecretKey("ClientSecret"))
	assert.False(t, IsSecretKey("VCENTER_USER"))
}

func TestMask(t *testing.T) {
	doc := mustObject(t, `{"vcenter": {"VCENTER_PASSWORD": "pw", "VCENTER_USER": "admin"}, "hosts": [{"ESX_PASSWORD": "x"}], "TOKEN": ""}`)

	masked := Mask(doc)
	assert.Equal(t, `{"vcenter":{"VCENTER_PASSWORD":"********","VCENTER_USER":"admin"},"hosts":[{"ESX_PASSWORD":"********"}],"TOKEN":""}`, jsondoc.Format(masked))

	// input left untouched
	vc, _ := doc.Object("vcenter")
	pw, _ := vc.String("VCENTER_PASSWORD")
	assert.Equal(t, "pw", pw)
}

func TestNewStoreRejectsNegativeBackups(t *testing.T) {
	_, err := NewStore(afero.NewMemMapFs(), "/home/op/.pgvm/", -1)
	assert.ErrorIs(t, err, backup.ErrInvalidLimit)
}
