package external

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/custody-be/internal/apperr"
)

type fakePutter struct {
	calls int
	in    *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.calls++
	f.in = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3ContentStore_Put(t *testing.T) {
	putter := &fakePutter{}
	store := newS3ContentStore(putter, "uploads", testPolicy())
	store.now = func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC) }

	path, err := store.Put(context.Background(), []byte("hello"), "text/plain")
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^content/2024/03/07/[0-9a-f-]{36}$`), path)
	assert.Equal(t, "uploads", aws.ToString(putter.in.Bucket))
	assert.Equal(t, path, aws.ToString(putter.in.Key))
	assert.Equal(t, "text/plain", aws.ToString(putter.in.ContentType))
	assert.Equal(t, []byte("hello"), putter.body)
}

func TestS3ContentStore_Failures(t *testing.T) {
	putter := &fakePutter{err: errors.New("connection reset")}
	store := newS3ContentStore(putter, "uploads", testPolicy())

	_, err := store.Put(context.Background(), []byte("x"), "")
	require.ErrorIs(t, err, apperr.ErrDependency)
	assert.Equal(t, 1, putter.calls)
	assert.Equal(t, "application/octet-stream", aws.ToString(putter.in.ContentType))

	_, err = store.Put(context.Background(), nil, "")
	require.ErrorIs(t, err, apperr.ErrValidation)

	putter.err = context.DeadlineExceeded
	_, err = store.Put(context.Background(), []byte("x"), "")
	require.ErrorIs(t, err, apperr.ErrDependencyTimeout)

	_, err = Unconfigured{}.Put(context.Background(), []byte("x"), "")
	require.ErrorIs(t, err, apperr.ErrDependency)
}
