package assets

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"gen3d-backend/internal/storage"

	"github.com/go-resty/resty/v2"
)

// FetchError wraps any network or storage failure while retrieving an asset.
// Callers degrade to the remote URL instead of failing the request.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch asset %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retriever downloads remote assets into the object store exactly once per
// (url, prefix) pair. Filenames are content-addressed on the URL, so a
// repeated fetch resolves to the existing object without a network call.
type Retriever struct {
	store  storage.ObjectStore
	client *resty.Client
	locks  *pathLocks
}

func NewRetriever(store storage.ObjectStore) *Retriever {
	return &Retriever{
		store:  store,
		client: resty.New(),
		locks:  newPathLocks(),
	}
}

func fileExtension(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "glb"
	}
	if idx := strings.LastIndex(parsed.Path, "."); idx >= 0 && idx < len(parsed.Path)-1 {
		return strings.ToLower(parsed.Path[idx+1:])
	}
	return "glb"
}

// ObjectKey derives the deterministic storage key for a remote URL.
func ObjectKey(rawURL, prefix string) string {
	sum := md5.Sum([]byte(rawURL))
	hash := hex.EncodeToString(sum[:])[:12]

	if prefix != "" {
		return fmt.Sprintf("%s_%s.%s", prefix, hash, fileExtension(rawURL))
	}
	return fmt.Sprintf("%s.%s", hash, fileExtension(rawURL))
}

// Fetch downloads remoteURL into bucket under a deterministic key and returns
// that key. If the object already exists no download is performed.
func (r *Retriever) Fetch(ctx context.Context, remoteURL, prefix, bucket string) (string, error) {
	key := ObjectKey(remoteURL, prefix)

	lockKey := bucket + "/" + key
	r.locks.Lock(lockKey)
	defer r.locks.Unlock(lockKey)

	exists, err := r.store.Exists(ctx, bucket, key)
	if err != nil {
		return "", &FetchError{URL: remoteURL, Err: err}
	}
	if exists {
		slog.Info("asset already downloaded", "bucket", bucket, "key", key)
		return key, nil
	}

	res, err := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(remoteURL)
	if err != nil {
		return "", &FetchError{URL: remoteURL, Err: err}
	}
	defer res.RawBody().Close()

	if !res.IsSuccess() {
		return "", &FetchError{URL: remoteURL, Err: fmt.Errorf("unexpected status %d", res.StatusCode())}
	}

	if err := r.store.PutObject(ctx, bucket, key, res.RawBody()); err != nil {
		return "", &FetchError{URL: remoteURL, Err: err}
	}

	slog.Info("downloaded asset", "url", remoteURL, "bucket", bucket, "key", key)
	return key, nil
}

// PublicURL maps a stored object to its externally servable URL.
func (r *Retriever) PublicURL(bucket, key string) string {
	return r.store.ObjectURL(bucket, key)
}

// Location reports where a stored object physically lives.
func (r *Retriever) Location(bucket, key string) string {
	return r.store.Location(bucket, key)
}
