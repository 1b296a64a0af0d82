// Copyright 2025 Juan Font
// BSD-3-Clause

package hcl

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/juanfont/pgvm/jsondoc"
	"github.com/juanfont/pgvm/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	ojson "github.com/virtuald/go-ordered-json"
)

const defaultFetchTimeout = 120 * time.Second

// Fetcher downloads the vendor compatibility list.
type Fetcher struct {
	URL    string
	Client *http.Client
}

func NewFetcher(url string, retries int) *Fetcher {
	if url == "" {
		url = DefaultURL
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retries
	retryClient.Logger = logger.NewRetryAdapter(log.Logger)
	retryClient.HTTPClient.Timeout = defaultFetchTimeout

	return &Fetcher{
		URL:    url,
		Client: retryClient.StandardClient(),
	}
}

// Fetch returns the stamp of the vendor list. The rest of the document is
// skipped.
func (f *Fetcher) Fetch(ctx context.Context) (*Stamp, error) {
	log.Info().Str("url", f.URL).Msg("fetching vendor hcl")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "error fetching data")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("error fetching data: %s returned %s", f.URL, resp.Status)
	}

	var raw struct {
		Timestamp   ojson.RawMessage `json:"timestamp"`
		UpdatedTime ojson.RawMessage `json:"jsonUpdatedTime"`
	}
	if err := ojson.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode vendor hcl")
	}

	timestamp, err := stampValue(raw.Timestamp)
	if err != nil {
		return nil, err
	}
	updated, err := stampValue(raw.UpdatedTime)
	if err != nil {
		return nil, err
	}

	stamp := &Stamp{Timestamp: timestamp, UpdatedTime: updated}
	log.Info().
		Str("timestamp", jsondoc.Format(timestamp)).
		Str("jsonUpdatedTime", jsondoc.Format(updated)).
		Msg("retrieved vendor stamp")
	return stamp, nil
}

func stampValue(raw ojson.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, ErrMissingStamp
	}
	v, err := jsondoc.DecodeBytes(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode vendor stamp")
	}
	if v == nil {
		return nil, ErrMissingStamp
	}
	return v, nil
}
