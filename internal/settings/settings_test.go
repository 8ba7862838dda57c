package settings_test

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/machool/internal/settings"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.yaml")
	writeFile(t, path, "store_domain: shop.example.com\napi_key: \" 0f8fad5b-d9cb-469f-a165-70867728950e \"\n")

	store, err := settings.Load(path, otelzap.New(zap.NewNop()))
	require.NoError(t, err)

	s := store.Current()
	assert.Equal(t, "shop.example.com", s.StoreDomain)
	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", s.APIKey)
	assert.True(t, s.Enabled, "enabled by default")
	assert.NoError(t, s.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := settings.Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.json")
	writeFile(t, path, `{"store_domain":"shop.example.com","api_key":"abc","enabled":false}`)

	store, err := settings.Load(path, nil)
	require.NoError(t, err)

	assert.False(t, store.Current().Enabled)
}

func TestReloadAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.yaml")
	writeFile(t, path, "store_domain: a.example.com\napi_key: one\n")

	store, err := settings.Load(path, nil)
	require.NoError(t, err)

	writeFile(t, path, "store_domain: b.example.com\napi_key: two\n")
	s, changed, err := store.Reload()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "b.example.com", s.StoreDomain)

	_, changed, err = store.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, store.Save(settings.Settings{StoreDomain: "c.example.com", APIKey: "three", Enabled: true}))
	assert.Equal(t, "c.example.com", store.Current().StoreDomain)

	reloaded, err := settings.Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "three", reloaded.Current().APIKey)
}

func TestReload_EditAfterSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.yaml")
	writeFile(t, path, "store_domain: a.example.com\napi_key: one\n")

	store, err := settings.Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(settings.Settings{StoreDomain: "saved.example.com", APIKey: "two", Enabled: true}))

	writeFile(t, path, "store_domain: edited.example.com\napi_key: three\n")
	s, changed, err := store.Reload()

	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "edited.example.com", s.StoreDomain)
	assert.Equal(t, "three", s.APIKey)
}

func TestReload_KeepsSettingsOnBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.yaml")
	writeFile(t, path, "store_domain: a.example.com\napi_key: one\n")

	store, err := settings.Load(path, nil)
	require.NoError(t, err)

	writeFile(t, path, "store_domain: [unclosed\n")
	s, changed, err := store.Reload()

	assert.Error(t, err)
	assert.False(t, changed)
	assert.Equal(t, "a.example.com", s.StoreDomain)
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.yaml")
	writeFile(t, path, "store_domain: a.example.com\napi_key: one\n")

	store, err := settings.Load(path, nil)
	require.NoError(t, err)

	var latest atomic.Value
	require.NoError(t, store.Watch(func(s settings.Settings) {
		latest.Store(s.StoreDomain)
	}))
	t.Cleanup(func() { _ = store.Close() })

	writeFile(t, path, "store_domain: watched.example.com\napi_key: two\n")

	require.Eventually(t, func() bool {
		v, _ := latest.Load().(string)
		return v == "watched.example.com"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_SaveDoesNotNotify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.yaml")
	writeFile(t, path, "store_domain: a.example.com\napi_key: one\n")

	store, err := settings.Load(path, otelzap.New(zap.NewNop()))
	require.NoError(t, err)

	var calls atomic.Int32
	var latest atomic.Value
	require.NoError(t, store.Watch(func(s settings.Settings) {
		calls.Add(1)
		latest.Store(s.StoreDomain)
	}))
	t.Cleanup(func() { _ = store.Close() })

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = store.Current()
			time.Sleep(5 * time.Millisecond)
		}
	}()
	for i := 0; i < 20; i++ {
		domain := fmt.Sprintf("shop%d.example.com", i)
		require.NoError(t, store.Save(settings.Settings{StoreDomain: domain, APIKey: "key", Enabled: true}))
		assert.Equal(t, domain, store.Current().StoreDomain)
	}
	<-done

	assert.Never(t, func() bool { return calls.Load() > 0 }, 500*time.Millisecond, 50*time.Millisecond)
	assert.Equal(t, "shop19.example.com", store.Current().StoreDomain)

	writeFile(t, path, "store_domain: edited.example.com\napi_key: key\n")
	require.Eventually(t, func() bool {
		v, _ := latest.Load().(string)
		return v == "edited.example.com"
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatch_Twice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "machool.yaml")
	writeFile(t, path, "store_domain: a.example.com\napi_key: one\n")

	store, err := settings.Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, store.Watch(func(settings.Settings) {}))

	assert.Error(t, store.Watch(func(settings.Settings) {}))
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestValidate(t *testing.T) {
	err := settings.Settings{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store_domain is required")
	assert.Contains(t, err.Error(), "api_key is required")
}

func TestFormFields(t *testing.T) {
	fields := settings.FormFields()

	require.Len(t, fields, 2)
	assert.Equal(t, "store_domain", fields[0].Key)
	assert.Equal(t, "example.com", fields[0].Placeholder)
	assert.Equal(t, "api_key", fields[1].Key)
	assert.Equal(t, "XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX", fields[1].Placeholder)
	for _, f := range fields {
		assert.True(t, f.Required)
		assert.Equal(t, "text", f.Type)
	}
}
