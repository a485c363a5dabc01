package storage

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/janelia-flyem/segeval/core"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// SplitRef divides a reference into a bucket URL and an object key.  A reference
// is either a local path or a URL of the form:
//
//	file:///<dir>/<name>
//	mem://<bucketname>/<key>
//	gs://<bucketname>/<key>
//	s3://<bucketname>/<key>?region=<region>
//
// Local paths are made absolute and returned as file:// bucket URLs on their
// directory.
func SplitRef(ref string) (bucketURL, key string, err error) {
	if ref == "" {
		return "", "", fmt.Errorf("empty storage reference")
	}
	if !strings.Contains(ref, "://") {
		abs, err := filepath.Abs(ref)
		if err != nil {
			return "", "", err
		}
		dir, name := filepath.Split(abs)
		return "file://" + filepath.ToSlash(filepath.Clean(dir)), name, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", "", fmt.Errorf("bad storage reference %q: %v", ref, err)
	}
	switch u.Scheme {
	case "file":
		dir, name := path.Split(u.Path)
		if name == "" {
			return "", "", fmt.Errorf("storage reference %q has no file name", ref)
		}
		return "file://" + path.Clean(dir), name, nil
	case "gs", "s3", "mem":
		key = strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return "", "", fmt.Errorf("storage reference %q must be of form '%s://<bucket>/<key>'", ref, u.Scheme)
		}
		bucketURL = u.Scheme + "://" + u.Host
		if u.RawQuery != "" {
			bucketURL += "?" + u.RawQuery
		}
		return bucketURL, key, nil
	default:
		return "", "", fmt.Errorf("unsupported storage scheme %q in %q", u.Scheme, ref)
	}
}

// In-memory buckets live for the life of the process.
var (
	memBuckets   = make(map[string]*blob.Bucket)
	memBucketsMu sync.Mutex
)

// OpenBucket returns a blob.Bucket for a bucket URL as returned by SplitRef.
// Google buckets use application default credentials and S3 buckets need
// AWS credentials and region set where gocloud can find them.
func OpenBucket(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	if strings.HasPrefix(bucketURL, "file://") {
		dir := strings.TrimPrefix(bucketURL, "file://")
		if err := os.MkdirAll(filepath.FromSlash(dir), 0755); err != nil {
			return nil, err
		}
	}
	if strings.HasPrefix(bucketURL, "mem://") {
		name := strings.TrimPrefix(bucketURL, "mem://")
		memBucketsMu.Lock()
		defer memBucketsMu.Unlock()
		mem, found := memBuckets[name]
		if !found {
			mem = memblob.OpenBucket(nil)
			memBuckets[name] = mem
		}
		// Callers close what they open, so hand out a view of the shared bucket.
		return blob.PrefixedBucket(mem, ""), nil
	}
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		core.Errorf("Can't open bucket reference @ %q: %v\n", bucketURL, err)
		return nil, err
	}
	return bucket, nil
}

// ReadAll returns the contents of the object at ref.
func ReadAll(ctx context.Context, ref string) ([]byte, error) {
	bucketURL, key, err := SplitRef(ref)
	if err != nil {
		return nil, err
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	defer bucket.Close()
	data, err := bucket.ReadAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("unable to read %q: %v", ref, err)
	}
	core.Debugf("read %s from %s\n", core.Bytes(uint64(len(data))), ref)
	return data, nil
}

// WriteAll stores data as the object at ref, replacing any existing object.
func WriteAll(ctx context.Context, ref string, data []byte) error {
	bucketURL, key, err := SplitRef(ref)
	if err != nil {
		return err
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return err
	}
	if err := bucket.WriteAll(ctx, key, data, nil); err != nil {
		bucket.Close()
		return fmt.Errorf("unable to write %q: %v", ref, err)
	}
	core.Debugf("wrote %s to %s\n", core.Bytes(uint64(len(data))), ref)
	return bucket.Close()
}

// ObjectVersion returns a string that changes whenever the object at ref is
// rewritten: its MD5 if the bucket records one, else its size, modification time
// and ETag.
func ObjectVersion(ctx context.Context, ref string) (string, error) {
	bucketURL, key, err := SplitRef(ref)
	if err != nil {
		return "", err
	}
	bucket, err := OpenBucket(ctx, bucketURL)
	if err != nil {
		return "", err
	}
	defer bucket.Close()
	attrs, err := bucket.Attributes(ctx, key)
	if err != nil {
		return "", fmt.Errorf("unable to get attributes of %q: %v", ref, err)
	}
	if len(attrs.MD5) != 0 {
		return fmt.Sprintf("md5:%x", attrs.MD5), nil
	}
	return fmt.Sprintf("%d:%d:%s", attrs.Size, attrs.ModTime.UnixNano(), attrs.ETag), nil
}
