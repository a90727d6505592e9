package device

import (
	"testing"

	"github.com/johnqing-424/WeChat-Gewe/internal/config"
	"github.com/johnqing-424/WeChat-Gewe/internal/domain"
	"github.com/johnqing-424/WeChat-Gewe/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	private := false
	r, err := NewRegistry(map[string]config.DeviceConfig{
		"zeta": {
			BaseURL: "http://api.geweapi.com/gewe/v2/api",
			AppID:   "wx_shared",
			Token:   "zeta-token",
		},
		"default": {
			Name:        "默认设备",
			BaseURL:     "http://api.geweapi.com/gewe/v2/api",
			CallbackURL: "http://127.0.0.1:5433/callback",
			AppID:       "wx_default",
			Token:       "default-token",
		},
		"alpha": {
			BaseURL:     "http://192.168.1.10:2531/v2/api",
			DownloadURL: "http://192.168.1.10:2532/download",
			AppID:       "wx_shared",
			Token:       "alpha-token",
			IsGewe:      &private,
		},
	})
	require.NoError(t, err)
	return r
}

func TestNewRegistry_DefaultMissing(t *testing.T) {
	_, err := NewRegistry(map[string]config.DeviceConfig{
		"device2": {BaseURL: "http://api.geweapi.com/gewe/v2/api", AppID: "wx", Token: "t"},
	})
	assert.ErrorIs(t, err, errs.ErrDefaultDeviceMissing)
}

func TestRegistry_Get(t *testing.T) {
	r := newTestRegistry(t)

	d, err := r.Get("alpha")
	require.NoError(t, err)
	assert.Equal(t, domain.DeviceModePrivate, d.Mode)
	assert.Equal(t, "alpha", d.Name)
	assert.Equal(t, "/callback/alpha", d.CallbackPath())

	_, err = r.Get("unknown")
	assert.ErrorIs(t, err, errs.ErrDeviceNotFound)

	assert.Equal(t, "默认设备", r.Default().Name)
	assert.Equal(t, "/callback", r.Default().CallbackPath())
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_List(t *testing.T) {
	r := newTestRegistry(t)
	var ids []string
	for _, d := range r.List() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"default", "alpha", "zeta"}, ids)
}

func TestRegistry_Immutable(t *testing.T) {
	r := newTestRegistry(t)
	list := r.List()
	list[0].Token = "changed"

	d, err := r.Get("default")
	require.NoError(t, err)
	assert.Equal(t, "default-token", d.Token)
}

func TestRegistry_ByAppID(t *testing.T) {
	r := newTestRegistry(t)

	d, ok := r.ByAppID("wx_default")
	require.True(t, ok)
	assert.Equal(t, "default", d.ID)

	d, ok = r.ByAppID("wx_shared")
	require.True(t, ok)
	assert.Equal(t, "alpha", d.ID)

	_, ok = r.ByAppID("wx_unknown")
	assert.False(t, ok)
}
