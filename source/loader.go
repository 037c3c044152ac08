package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/time/rate"

	"github.com/greentheorystudio/openlayers/blobstore"
	"github.com/greentheorystudio/openlayers/codec"
	"github.com/greentheorystudio/openlayers/feature"
	"github.com/greentheorystudio/openlayers/format/geojson"
	"github.com/greentheorystudio/openlayers/geom"
)

// Loader fetches features for a view. The extent and resolution describe the
// view that triggered the load; loaders backed by static documents may
// ignore both.
type Loader func(ctx context.Context, extent geom.Extent, resolution float64) ([]*feature.Feature, error)

// LoaderOptions configure the built-in loaders.
type LoaderOptions struct {
	// Codec decodes the fetched GeoJSON document. Defaults to codec.Default.
	Codec codec.Codec

	// Strict makes the GeoJSON decoder reject non-point geometries instead
	// of skipping them.
	Strict bool

	// HTTPClient is used by NewURLLoader. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// RateLimit throttles NewURLLoader requests when positive.
	RateLimit rate.Limit

	// RateBurst is the limiter burst size. Defaults to 1 when RateLimit is
	// set.
	RateBurst int
}

// LoaderOption configures loader construction.
type LoaderOption func(*LoaderOptions)

// WithLoaderCodec sets the codec used to decode fetched documents.
func WithLoaderCodec(c codec.Codec) LoaderOption {
	return func(o *LoaderOptions) {
		o.Codec = c
	}
}

// WithLoaderStrict makes the decoder reject non-point geometries.
func WithLoaderStrict() LoaderOption {
	return func(o *LoaderOptions) {
		o.Strict = true
	}
}

// WithHTTPClient sets the HTTP client used by NewURLLoader.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(o *LoaderOptions) {
		o.HTTPClient = client
	}
}

// WithRateLimit throttles NewURLLoader requests.
func WithRateLimit(limit rate.Limit, burst int) LoaderOption {
	return func(o *LoaderOptions) {
		o.RateLimit = limit
		o.RateBurst = burst
	}
}

func applyLoaderOptions(optFns []LoaderOption) LoaderOptions {
	opts := LoaderOptions{
		Codec:      codec.Default,
		HTTPClient: http.DefaultClient,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	return opts
}

// NewFileLoader returns a loader reading a GeoJSON document from the local
// filesystem. Files with a ".zst" suffix are decompressed first.
func NewFileLoader(path string, optFns ...LoaderOption) Loader {
	opts := applyLoaderOptions(optFns)

	return func(ctx context.Context, _ geom.Extent, _ float64) ([]*feature.Feature, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("source: read %s: %w", path, err)
		}
		return decodeDocument(path, data, opts)
	}
}

// NewURLLoader returns a loader fetching a GeoJSON document over HTTP.
// Requests carry the load's context and are throttled when a rate limit is
// configured.
func NewURLLoader(url string, optFns ...LoaderOption) Loader {
	opts := applyLoaderOptions(optFns)

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	return func(ctx context.Context, _ geom.Extent, _ float64) ([]*feature.Feature, error) {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("source: request %s: %w", url, err)
		}

		resp, err := opts.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("source: fetch %s: %w", url, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("source: fetch %s: unexpected status %s", url, resp.Status)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("source: fetch %s: %w", url, err)
		}
		return decodeDocument(url, data, opts)
	}
}

// NewBlobLoader returns a loader reading a GeoJSON document from a blob
// store. Blobs with a ".zst" suffix are decompressed first.
func NewBlobLoader(store blobstore.Store, name string, optFns ...LoaderOption) Loader {
	opts := applyLoaderOptions(optFns)

	return func(ctx context.Context, _ geom.Extent, _ float64) ([]*feature.Feature, error) {
		data, err := blobstore.ReadAll(ctx, store, name)
		if err != nil {
			return nil, fmt.Errorf("source: read blob %s: %w", name, err)
		}
		return decodeDocument(name, data, opts)
	}
}

func decodeDocument(name string, data []byte, opts LoaderOptions) ([]*feature.Feature, error) {
	if strings.HasSuffix(name, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()

		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("source: decompress %s: %w", name, err)
		}
	}

	return geojson.Decode(data, geojson.WithCodec(opts.Codec), geojson.WithStrict(opts.Strict))
}
