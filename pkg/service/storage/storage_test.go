package storage_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/nexaflow/nexaflow/pkg/service/storage"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		path   string
		want   string
	}{
		{name: "plain", path: "d1/v1/logo.png", want: "d1/v1/logo.png"},
		{name: "with prefix", prefix: "uploads", path: "d1/logo.png", want: "uploads/d1/logo.png"},
		{name: "leading slash", path: "/d1/logo.png", want: "d1/logo.png"},
		{name: "parent traversal is cleaned", path: "../../etc/passwd", want: "etc/passwd"},
		{name: "empty", path: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.S(t, storage.ObjectName(tt.prefix, tt.path)).Equal(tt.want)
		})
	}
}

func TestObjectURL(t *testing.T) {
	got := storage.ObjectURL("https://storage.googleapis.com/bucket", "d1/v1/final logo.png")
	gt.S(t, got).Equal("https://storage.googleapis.com/bucket/d1/v1/final%20logo.png")
}

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory("https://files.example.com")

	url, err := m.Put(ctx, "d1/v1/logo.png", strings.NewReader("png-bytes"), "image/png")
	gt.NoError(t, err).Required()
	gt.S(t, url).Equal("https://files.example.com/d1/v1/logo.png")

	obj, ok := m.Get("d1/v1/logo.png")
	gt.B(t, ok).True()
	gt.S(t, string(obj.Data)).Equal("png-bytes")
	gt.S(t, obj.ContentType).Equal("image/png")
	gt.N(t, m.Len()).Equal(1)

	_, err = m.Put(ctx, "", strings.NewReader("x"), "text/plain")
	gt.Error(t, err)

	gt.NoError(t, m.Delete(ctx, "d1/v1/logo.png"))
	_, ok = m.Get("d1/v1/logo.png")
	gt.B(t, ok).False()
	gt.N(t, m.Len()).Equal(0)
	gt.NoError(t, m.Delete(ctx, "d1/v1/logo.png"))
}

func TestGCS(t *testing.T) {
	bucket := os.Getenv("TEST_GCS_BUCKET")
	if bucket == "" {
		t.Skip("TEST_GCS_BUCKET is not set")
	}

	ctx := context.Background()
	s, err := storage.NewGCS(ctx, bucket, storage.WithPrefix("nexaflow-test"))
	gt.NoError(t, err).Required()
	defer func() { gt.NoError(t, s.Close()) }()

	name := uuid.NewString() + "/hello.txt"
	url, err := s.Put(ctx, name, strings.NewReader("hello"), "text/plain")
	gt.NoError(t, err).Required()
	gt.S(t, url).HasSuffix("/nexaflow-test/" + name)

	gt.NoError(t, s.Delete(ctx, name))
	gt.NoError(t, s.Delete(ctx, name))
}
