package mediawiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/lucasvanbramer/talkpipeline/internal/applier"
	"github.com/lucasvanbramer/talkpipeline/internal/common"
	"github.com/lucasvanbramer/talkpipeline/internal/mediawiki/htmldiff"
	"github.com/lucasvanbramer/talkpipeline/internal/metrics"
	"github.com/lucasvanbramer/talkpipeline/pkg/config"
	"github.com/lucasvanbramer/talkpipeline/pkg/diffrow"
	"github.com/lucasvanbramer/talkpipeline/pkg/revision"
	"github.com/lucasvanbramer/talkpipeline/pkg/user"
)

// Client implements internal/driver.RevisionSource against a live
// MediaWiki instance's action API. Grounded on the teacher's
// internal/rpc.Client: one struct wrapping a transport, every public
// method timed and counted, every network call routed through
// retryWithBackoff.
type Client struct {
	http        *http.Client
	baseURL     string
	userAgent   string
	retryConfig *config.RetryConfig

	revisionsPerPage int
}

// NewClient returns a Client configured from cfg.
func NewClient(cfg config.MediaWikiConfig, retryConfig *config.RetryConfig) *Client {
	return &Client{
		http:        &http.Client{Timeout: cfg.RequestTimeout.Duration},
		baseURL:     cfg.BaseURL,
		userAgent:   cfg.UserAgent,
		retryConfig: retryConfig,

		revisionsPerPage: cfg.RevisionsPerPage,
	}
}

type revisionsQueryResponse struct {
	Query struct {
		Pages map[string]struct {
			Revisions []struct {
				RevID      json.Number `json:"revid"`
				Timestamp  string      `json:"timestamp"`
				User       string      `json:"user"`
				UserHidden *bool       `json:"userhidden,omitempty"`
				Anon       *bool       `json:"anon,omitempty"`
			} `json:"revisions"`
		} `json:"pages"`
	} `json:"query"`
	Continue *struct {
		RvContinue string `json:"rvcontinue"`
	} `json:"continue,omitempty"`
}

// ListRevisions returns every revision of title from sinceID onward, in
// chronological order, satisfying internal/driver.RevisionSource. sinceID
// itself is included so the driver can use it as the first pair's prev.
func (c *Client) ListRevisions(ctx context.Context, title string, sinceID revision.ID) ([]applier.RevisionMeta, error) {
	var all []applier.RevisionMeta
	rvContinue := ""

	for {
		var resp revisionsQueryResponse
		err := c.call(ctx, "list_revisions", url.Values{
			"action":        {"query"},
			"format":        {"json"},
			"prop":          {"revisions"},
			"titles":        {title},
			"rvprop":        {"ids|timestamp|user|userhidden"},
			"rvdir":         {"newer"},
			"rvlimit":       {strconv.Itoa(c.revisionsPerPage)},
			"rvcontinue":    {rvContinue},
			"formatversion": {"2"},
		}, &resp)
		if err != nil {
			return nil, fmt.Errorf("mediawiki: list revisions: %w", err)
		}

		for _, page := range resp.Query.Pages {
			for _, rev := range page.Revisions {
				ts, perr := time.Parse(time.RFC3339, rev.Timestamp)
				if perr != nil {
					return nil, fmt.Errorf("mediawiki: parse revision timestamp: %w", perr)
				}

				revIDStr := rev.RevID.String()
				revID, perr2 := common.ParseUint64orHex(&revIDStr)
				if perr2 != nil {
					return nil, fmt.Errorf("mediawiki: parse revision id: %w", perr2)
				}

				id := revision.Known(revID)
				if sinceID.IsKnown() && id.Less(sinceID) {
					continue
				}

				var author user.User
				switch {
				case rev.UserHidden != nil && *rev.UserHidden:
					author = user.NewHidden()
				case rev.User == "":
					author = user.NewUnknown()
				default:
					author = user.NewNamed(rev.User)
				}

				all = append(all, applier.RevisionMeta{ID: id, Timestamp: ts, User: author})
			}
		}

		if resp.Continue == nil || resp.Continue.RvContinue == "" {
			break
		}
		rvContinue = resp.Continue.RvContinue
	}

	return all, nil
}

type compareResponse struct {
	Compare struct {
		Body string `json:"*"`
	} `json:"compare"`
}

// FetchDiff returns the classified diff rows between fromID and toID.
func (c *Client) FetchDiff(ctx context.Context, title string, fromID, toID revision.ID) ([]diffrow.Row, error) {
	var resp compareResponse
	err := c.call(ctx, "fetch_diff", url.Values{
		"action":        {"compare"},
		"format":        {"json"},
		"formatversion": {"2"},
		"fromrev":       {fmt.Sprintf("%d", fromID.Value())},
		"torev":         {fmt.Sprintf("%d", toID.Value())},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("mediawiki: fetch diff: %w", err)
	}

	rows, err := htmldiff.Parse(resp.Compare.Body)
	if err != nil {
		return nil, fmt.Errorf("mediawiki: tokenize diff for %s: %w", title, err)
	}
	return rows, nil
}

type infoResponse struct {
	Query struct {
		Pages map[string]struct {
			LastRevID json.Number `json:"lastrevid"`
		} `json:"pages"`
	} `json:"query"`
}

// LastRevisionID returns title's current revision id, for the freshness
// short-circuit.
func (c *Client) LastRevisionID(ctx context.Context, title string) (revision.ID, error) {
	var resp infoResponse
	err := c.call(ctx, "last_revision_id", url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"prop":          {"info"},
		"titles":        {title},
		"formatversion": {"2"},
	}, &resp)
	if err != nil {
		return revision.Unknown, fmt.Errorf("mediawiki: last revision id: %w", err)
	}

	for _, page := range resp.Query.Pages {
		lastRevIDStr := page.LastRevID.String()
		lastRevID, perr := common.ParseUint64orHex(&lastRevIDStr)
		if perr != nil {
			return revision.Unknown, fmt.Errorf("mediawiki: parse last revision id: %w", perr)
		}
		return revision.Known(lastRevID), nil
	}
	return revision.Unknown, fmt.Errorf("mediawiki: no page info returned for %q", title)
}

// call executes one GET against the action API, retrying transient
// failures and decoding the JSON body into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out interface{}) error {
	start := time.Now()
	metrics.MediaWikiMethodInc(method)
	defer func() {
		metrics.MediaWikiMethodDuration(method, time.Since(start))
	}()

	err := retryWithBackoff(ctx, c.retryConfig, method, func() error {
		req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
		if rerr != nil {
			return rerr
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, rerr := c.http.Do(req)
		if rerr != nil {
			return rerr
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("mediawiki: unexpected status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(out)
	})

	if err != nil {
		metrics.MediaWikiMethodError(method, "error")
		return err
	}
	return nil
}
