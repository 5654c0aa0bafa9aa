package source

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

type s3Transport struct {
	once   sync.Once
	client s3iface.S3API
	err    error
}

// NewS3Transport creates a transport for s3://bucket/key URLs. If client is
// nil, one is created from the default AWS session on first use.
func NewS3Transport(client s3iface.S3API) Transport {
	return &s3Transport{client: client}
}

func (t *s3Transport) s3(loc Location) (s3iface.S3API, *string, *string, error) {
	t.once.Do(func() {
		if t.client != nil {
			return
		}
		sess, err := session.NewSessionWithOptions(session.Options{SharedConfigState: session.SharedConfigEnable})
		if err != nil {
			t.err = err
			return
		}
		t.client = s3.New(sess)
	})
	if t.err != nil {
		return nil, nil, nil, t.err
	}
	return t.client, aws.String(loc.Host), aws.String(strings.TrimPrefix(loc.Path, "/")), nil
}

func isS3NotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return true
		}
	}
	return false
}

func (t *s3Transport) Stat(ctx context.Context, loc Location) (int64, error) {
	client, bucket, key, err := t.s3(loc)
	if err != nil {
		return 0, err
	}
	out, err := client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{Bucket: bucket, Key: key})
	if err != nil {
		if isS3NotFound(err) {
			return 0, notExist(loc, err)
		}
		return 0, err
	}
	return aws.Int64Value(out.ContentLength), nil
}

func (t *s3Transport) Open(ctx context.Context, loc Location) (Channel, error) {
	size, err := t.Stat(ctx, loc)
	if err != nil {
		return nil, err
	}
	client, bucket, key, _ := t.s3(loc)
	return &rangeChannel{
		name: loc.Raw,
		size: size,
		open: func(off int64) (io.ReadCloser, error) {
			out, err := client.GetObjectWithContext(ctx, &s3.GetObjectInput{
				Bucket: bucket,
				Key:    key,
				Range:  aws.String(fmt.Sprintf("bytes=%d-", off)),
			})
			if err != nil {
				return nil, err
			}
			return out.Body, nil
		},
	}, nil
}
