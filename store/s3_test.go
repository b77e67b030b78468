package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/pricerank/models"
	"github.com/use-agent/pricerank/scraper"
)

type putCall struct {
	bucket, key, contentType string
	body                     []byte
}

type fakeS3 struct {
	calls []putCall
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, _ := io.ReadAll(in.Body)
	f.calls = append(f.calls, putCall{
		bucket:      aws.ToString(in.Bucket),
		key:         aws.ToString(in.Key),
		contentType: aws.ToString(in.ContentType),
		body:        body,
	})
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_Keys(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		path   string
		want   string
	}{
		{"no prefix", "", "data/fetched_J1.html", "data/fetched_J1.html"},
		{"prefix", "snapshots/", "data/fetched_J1.html", "snapshots/data/fetched_J1.html"},
		{"absolute path", "snapshots", "/var/lib/pricerank/top_rankings_J1.csv", "snapshots/var/lib/pricerank/top_rankings_J1.csv"},
		{"dot segments", "", "./data/../data/x.csv", "data/x.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newS3Store(&fakeS3{}, "bucket", tt.prefix)
			assert.Equal(t, tt.want, s.key(tt.path))
		})
	}
}

func TestS3Store_Save(t *testing.T) {
	fake := &fakeS3{}
	s := newS3Store(fake, "pricerank", "p")

	doc, err := scraper.ParseString("<h1>x</h1>")
	require.NoError(t, err)
	require.NoError(t, s.SaveDocument(context.Background(), doc, "data/fetched_J1.html"))
	require.NoError(t, s.SaveRows(context.Background(), sampleRows(), "data/top_rankings_J1.csv"))

	require.Len(t, fake.calls, 2)
	assert.Equal(t, "pricerank", fake.calls[0].bucket)
	assert.Equal(t, "p/data/fetched_J1.html", fake.calls[0].key)
	assert.Equal(t, htmlContentType, fake.calls[0].contentType)
	assert.Contains(t, string(fake.calls[0].body), "<h1>x</h1>")

	assert.Equal(t, csvContentType, fake.calls[1].contentType)
	rows, err := DecodeRows(bytes.NewReader(fake.calls[1].body))
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)
}

func TestS3Store_PutError(t *testing.T) {
	s := newS3Store(&fakeS3{err: errors.New("access denied")}, "b", "")
	err := s.SaveRows(context.Background(), []models.RankingEntry{{Rank: "1"}}, "x.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://b/x.csv")
}
