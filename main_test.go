package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoutesMarkdown(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{ServiceName, "routes"}))

	doc := out.String()
	for _, route := range []string{"/api/articles", "/api/article/{articleID}", "/api/auth/sign-in/email", "/api/search", "/dashboard", "/healthz"} {
		assert.Contains(t, doc, route)
	}
}

func TestRoutesJSON(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{ServiceName, "routes", "--json"}))
	assert.True(t, json.Valid(out.Bytes()))
}

func TestLoadEnv(t *testing.T) {
	t.Run("missing default file is ignored", func(t *testing.T) {
		assert.NoError(t, loadEnv(filepath.Join(t.TempDir(), ".env"), false))
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		assert.Error(t, loadEnv(filepath.Join(t.TempDir(), ".env"), true))
	})

	t.Run("values do not override the environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("BLOGCMS_TEST_A=file\nBLOGCMS_TEST_B=file\n"), 0o600))
		t.Setenv("BLOGCMS_TEST_A", "env")
		t.Cleanup(func() { os.Unsetenv("BLOGCMS_TEST_B") })

		require.NoError(t, loadEnv(path, true))
		assert.Equal(t, "env", os.Getenv("BLOGCMS_TEST_A"))
		assert.Equal(t, "file", os.Getenv("BLOGCMS_TEST_B"))
	})
}
