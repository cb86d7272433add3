package csvsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxBytes = 50 << 20 // 50MB
	DefaultTimeout  = 30 * time.Second
)

// S3API is the subset of the S3 client used to read CSV objects.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ObjectOpener reads objects from the application's object store.
type ObjectOpener interface {
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// Config configures a Fetcher.
type Config struct {
	MaxBytes     int64
	Timeout      time.Duration
	HostRewrites []Rewrite

	// OAuth2 client credentials for the processing service. Token fetching is
	// enabled when TokenURL is set.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	// AllowFiles enables file:// and bare local paths.
	AllowFiles bool
}

// Fetcher reads CSV exports from http(s), s3, store and optionally file URLs.
type Fetcher struct {
	HTTP       *http.Client
	S3         S3API
	Store      ObjectOpener
	Rewrites   []Rewrite
	MaxBytes   int64
	AllowFiles bool
}

// New builds a Fetcher. s3Client and store may be nil, which disables the
// matching schemes.
func New(cfg Config, s3Client S3API, store ObjectOpener) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	base := &http.Client{Timeout: timeout}
	httpClient := base
	if strings.TrimSpace(cfg.TokenURL) != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = cc.Client(ctx)
		httpClient.Timeout = timeout
	}

	return &Fetcher{
		HTTP:       httpClient,
		S3:         s3Client,
		Store:      store,
		Rewrites:   cfg.HostRewrites,
		MaxBytes:   maxBytes,
		AllowFiles: cfg.AllowFiles,
	}
}

// FetchText retrieves and decodes one CSV export.
func (f *Fetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	rc, err := f.Open(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return ReadText(rc, f.MaxBytes)
}

// FetchPair retrieves the merged and detailed exports concurrently. Both must
// succeed.
func (f *Fetcher) FetchPair(ctx context.Context, mergedURL, detailedURL string) (string, string, error) {
	var merged, detailed string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		text, err := f.FetchText(gctx, mergedURL)
		if err != nil {
			return &PairError{Side: "merged", Err: err}
		}
		merged = text
		return nil
	})
	g.Go(func() error {
		text, err := f.FetchText(gctx, detailedURL)
		if err != nil {
			return &PairError{Side: "detailed", Err: err}
		}
		detailed = text
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return merged, detailed, nil
}

// Open returns a reader for the object behind rawURL.
func (f *Fetcher) Open(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: empty url", ErrUnsupportedScheme)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse csv url: %w", stripURL(err))
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.openHTTP(ctx, u)
	case "s3":
		return f.openS3(ctx, u)
	case "store":
		return f.openStore(ctx, u)
	case "file":
		return f.openFile(u.Path)
	case "":
		return f.openFile(rawURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}
}

func (f *Fetcher) openHTTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	target := ApplyRewrites(u, f.Rewrites)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	client := f.HTTP
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: redact(target), Err: stripURL(err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &StatusError{URL: redact(target), StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, nil
}

func (f *Fetcher) openS3(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if f.S3 == nil {
		return nil, fmt.Errorf("%w: s3", ErrNotConfigured)
	}
	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid s3 url %q", u.String())
	}
	out, err := f.S3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object bucket=%s key=%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func (f *Fetcher) openStore(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	if f.Store == nil {
		return nil, fmt.Errorf("%w: store", ErrNotConfigured)
	}
	key := strings.TrimPrefix(u.Host+u.Path, "/")
	if key == "" {
		return nil, fmt.Errorf("invalid store url %q", u.String())
	}
	rc, err := f.Store.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open stored csv %s: %w", key, err)
	}
	return rc, nil
}

func (f *Fetcher) openFile(path string) (io.ReadCloser, error) {
	if !f.AllowFiles {
		return nil, fmt.Errorf("%w: file", ErrUnsupportedScheme)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	return file, nil
}

// stripURL unwraps *url.Error, whose message repeats the full request URL
// including any presigned query.
func stripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}

// redact drops query and credentials so presigned URLs are not logged.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	c.User = nil
	return c.String()
}
