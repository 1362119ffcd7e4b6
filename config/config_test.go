/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	c := FromEnv(envOf(nil))
	assert.Equal(t, "", c.StoreDSN)
	assert.Equal(t, ".ccreport", c.StoreDir)
	assert.Equal(t, "en", c.Lang)
	assert.Equal(t, "us-east-1", c.Archive.Region)
	assert.Equal(t, "ccreport-snapshots", c.Archive.Bucket)
	assert.True(t, c.Archive.UseSSL)
	assert.False(t, c.ArchiveEnabled())
}

func TestFromEnv(t *testing.T) {
	c := FromEnv(envOf(map[string]string{
		EnvStoreDSN:           "postgres://u@db/reports",
		EnvLang:               " zh ",
		EnvS3Endpoint:         "minio:9000",
		EnvS3UseSSL:           "false",
		"MINIO_ROOT_USER":     "minio",
		EnvS3SecretKey:        "secret",
		"MINIO_ROOT_PASSWORD": "ignored",
	}))
	assert.Equal(t, "postgres://u@db/reports", c.StoreDSN)
	assert.Equal(t, "zh", c.Lang)
	assert.True(t, c.ArchiveEnabled())
	assert.False(t, c.Archive.UseSSL)
	assert.Equal(t, "minio", c.Archive.AccessKey)
	assert.Equal(t, "secret", c.Archive.SecretKey)
}

func TestUseSSLMalformed(t *testing.T) {
	c := FromEnv(envOf(map[string]string{EnvS3UseSSL: "maybe"}))
	assert.True(t, c.Archive.UseSSL)
}

func TestRegisterFlags(t *testing.T) {
	c := FromEnv(envOf(map[string]string{EnvStoreDir: "/var/ccreport"}))
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-lang=zh", "-s3_endpoint=localhost:9000"}))
	assert.Equal(t, "/var/ccreport", c.StoreDir)
	assert.Equal(t, "zh", c.Lang)
	assert.True(t, c.ArchiveEnabled())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CCREPORT_STORE_DIR=/from/dotenv\n"), 0644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv(EnvStoreDir)
	})
	os.Unsetenv(EnvStoreDir)

	c := Load()
	assert.Equal(t, "/from/dotenv", c.StoreDir)
}
