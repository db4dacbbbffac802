package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBuiltinCatalog(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	for _, key := range []string{"fis", "wsc", "archer"} {
		tpl, ok := r.Get(key)
		require.True(t, ok, "builtin catalog should contain %s", key)
		assert.Equal(t, key, tpl.VendorKey)
		assert.NotEmpty(t, tpl.RequiredFields)
		assert.NotEmpty(t, tpl.Format)
	}

	_, ok := r.Get("unknown_vendor")
	assert.False(t, ok)
}

func TestLoadCatalogFromFile(t *testing.T) {
	catalog := `[
		{
			"vendor_key": "custom",
			"display_name": "Custom Vendor",
			"version": "1.0",
			"format": "json",
			"required_fields": ["account_id", "proceeds"]
		}
	]`
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	r, err := Load(path)
	require.NoError(t, err)

	tpl, ok := r.Get("custom")
	require.True(t, ok)
	assert.Equal(t, "Custom Vendor", tpl.DisplayName)
	assert.Equal(t, []string{"account_id", "proceeds"}, tpl.RequiredFields)

	// File catalog replaces the built-ins, not merges.
	_, ok = r.Get("fis")
	assert.False(t, ok)
}

func TestLoadCatalogErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("empty catalog", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("duplicate vendor key", func(t *testing.T) {
		catalog := `[
			{"vendor_key": "dup", "format": "json"},
			{"vendor_key": "dup", "format": "csv"}
		]`
		path := filepath.Join(t.TempDir(), "dup.json")
		require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "duplicate vendor key")
	})
}

func TestListSortedByVendorKey(t *testing.T) {
	r, err := Load("")
	require.NoError(t, err)

	list := r.List()
	require.Len(t, list, 3)
	assert.Equal(t, "archer", list[0].VendorKey)
	assert.Equal(t, "fis", list[1].VendorKey)
	assert.Equal(t, "wsc", list[2].VendorKey)
}
