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

// Package archive uploads snapshots and compilation databases to an S3
// compatible object store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/golang/glog"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"naive.systems/ccreport/store"
)

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type S3Store struct {
	client     *minio.Client
	bucketName string
	region     string
	initOnce   sync.Once
	initErr    error
}

func NewS3Store(cfg S3Config) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, errors.New("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio.New: %v", err)
	}
	return &S3Store{client: client, bucketName: bucket, region: region}, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		glog.Infof("creating bucket %s", s.bucketName)
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// objectKey lays objects out as <run>/<snapshot>/<name>. The run name is
// escaped so that it is a single key segment.
func objectKey(run, snapshotID, name string) string {
	return url.PathEscape(strings.TrimSpace(run)) + "/" + strings.TrimSpace(snapshotID) + "/" +
		strings.TrimLeft(strings.TrimSpace(name), "/")
}

func (s *S3Store) put(ctx context.Context, key, contentType string, content []byte) error {
	if err := s.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %v", err)
	}
	_, err := s.client.PutObject(ctx, s.bucketName, key, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("client.PutObject: %v", err)
	}
	glog.Infof("uploaded s3://%s/%s", s.bucketName, key)
	return nil
}

// PutSnapshot uploads the snapshot as snapshot.json and returns its key.
func (s *S3Store) PutSnapshot(ctx context.Context, snapshot *store.Snapshot) (string, error) {
	if snapshot.Run == "" || snapshot.ID == "" {
		return "", errors.New("snapshot must be saved before it is archived")
	}
	content, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("json.Marshal: %v", err)
	}
	key := objectKey(snapshot.Run, snapshot.ID, "snapshot.json")
	return key, s.put(ctx, key, "application/json", content)
}

// PutCompileCommands uploads the compilation database at path next to the
// snapshot it was analyzed for.
func (s *S3Store) PutCompileCommands(ctx context.Context, snapshot *store.Snapshot, path string) (string, error) {
	if snapshot.Run == "" || snapshot.ID == "" {
		return "", errors.New("snapshot must be saved before it is archived")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("os.ReadFile: %v", err)
	}
	key := objectKey(snapshot.Run, snapshot.ID, "compile_commands.json")
	return key, s.put(ctx, key, "application/json", content)
}
