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
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"naive.systems/ccreport/archive"
)

const (
	EnvStoreDSN     = "CCREPORT_STORE_DSN"
	EnvStoreDir     = "CCREPORT_STORE_DIR"
	EnvLang         = "CCREPORT_LANG"
	EnvCheckers     = "CCREPORT_CHECKERS"
	EnvCharset      = "CCREPORT_SOURCE_CHARSET"
	EnvS3Endpoint   = "CCREPORT_S3_ENDPOINT"
	EnvS3Region     = "CCREPORT_S3_REGION"
	EnvS3AccessKey  = "CCREPORT_S3_ACCESS_KEY"
	EnvS3SecretKey  = "CCREPORT_S3_SECRET_KEY"
	EnvS3Bucket     = "CCREPORT_S3_BUCKET"
	EnvS3UseSSL     = "CCREPORT_S3_USE_SSL"
	defaultStoreDir = ".ccreport"
)

type Config struct {
	// StoreDSN selects the Postgres store. The file store under StoreDir is
	// used when it is empty.
	StoreDSN string
	StoreDir string
	Lang     string
	// CheckersFile is the YAML checker registry, optional.
	CheckersFile string
	// Charset is the encoding of the analyzed sources, UTF-8 when empty.
	Charset string
	Archive archive.S3Config
}

// ArchiveEnabled reports whether snapshots are uploaded.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Endpoint != ""
}

// Load reads .env from the working directory, if any, then the process
// environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv alone.
func FromEnv(getenv func(string) string) *Config {
	env := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}
	return &Config{
		StoreDSN:     env(EnvStoreDSN),
		StoreDir:     firstNonEmpty(env(EnvStoreDir), defaultStoreDir),
		Lang:         firstNonEmpty(env(EnvLang), "en"),
		CheckersFile: env(EnvCheckers),
		Charset:      env(EnvCharset),
		Archive: archive.S3Config{
			Endpoint:  env(EnvS3Endpoint),
			Region:    firstNonEmpty(env(EnvS3Region), "us-east-1"),
			AccessKey: firstNonEmpty(env(EnvS3AccessKey), env("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(env(EnvS3SecretKey), env("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(env(EnvS3Bucket), "ccreport-snapshots"),
			UseSSL:    parseBool(env(EnvS3UseSSL), true),
		},
	}
}

// RegisterFlags binds the shared flags of the subcommands to c, so the
// environment provides the defaults and the command line overrides them.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.StoreDSN, "store_dsn", c.StoreDSN, "Postgres connection string of the report store")
	fs.StringVar(&c.StoreDir, "store_dir", c.StoreDir, "directory of the file report store")
	fs.StringVar(&c.Lang, "lang", c.Lang, "language of the printed summary (en or zh)")
	fs.StringVar(&c.CheckersFile, "checkers", c.CheckersFile, "YAML checker registry")
	fs.StringVar(&c.Charset, "charset", c.Charset, "encoding of the sources, such as GBK")
	fs.StringVar(&c.Archive.Endpoint, "s3_endpoint", c.Archive.Endpoint, "S3 endpoint snapshots are archived to, empty to disable")
	fs.StringVar(&c.Archive.Bucket, "s3_bucket", c.Archive.Bucket, "S3 bucket of the archive")
}

func parseBool(raw string, fallback bool) bool {
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
