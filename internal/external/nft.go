package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hongminglow/custody-be/internal/apperr"
	"github.com/hongminglow/custody-be/internal/resilience"
)

// NFTIndexer lists image URLs of the NFTs held by an address.
type NFTIndexer interface {
	WalletNFTs(ctx context.Context, address, chain string) ([]string, error)
}

// MoralisClient reads wallet NFTs from the Moralis EVM API.
type MoralisClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	policy  resilience.Policy
}

// NewMoralisClient constructs a client for the Moralis API at baseURL.
func NewMoralisClient(baseURL, apiKey string, httpClient *http.Client, policy resilience.Policy) *MoralisClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	policy.Name = "nft indexer"
	return &MoralisClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		policy:  policy,
	}
}

type moralisPage struct {
	Result []moralisNFT `json:"result"`
}

type moralisNFT struct {
	PossibleSpam bool `json:"possible_spam"`
	Media        *struct {
		Category        string `json:"category"`
		MediaCollection struct {
			High struct {
				URL string `json:"url"`
			} `json:"high"`
		} `json:"media_collection"`
	} `json:"media"`
}

// WalletNFTs returns the high-quality media URL of every NFT at address on
// chain, skipping spam and video items. The request is retried once.
func (c *MoralisClient) WalletNFTs(ctx context.Context, address, chain string) ([]string, error) {
	address, chain = strings.TrimSpace(address), strings.TrimSpace(chain)
	if address == "" || chain == "" {
		return nil, apperr.Validation("address and chain headers are required")
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("nft indexer: %w: api key not configured", apperr.ErrDependency)
	}

	page, err := resilience.Read(ctx, c.policy, func(ctx context.Context) (moralisPage, error) {
		return c.fetch(ctx, address, chain)
	})
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(page.Result))
	for _, nft := range page.Result {
		if nft.PossibleSpam || nft.Media == nil || nft.Media.Category == "video" {
			continue
		}
		if u := nft.Media.MediaCollection.High.URL; u != "" {
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (c *MoralisClient) fetch(ctx context.Context, address, chain string) (moralisPage, error) {
	q := url.Values{}
	q.Set("chain", chain)
	q.Set("media_items", "true")
	endpoint := fmt.Sprintf("%s/%s/nft?%s", c.baseURL, url.PathEscape(address), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return moralisPage{}, fmt.Errorf("nft indexer: build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return moralisPage{}, transportError("nft indexer", err)
	}
	defer resp.Body.Close()

	if err := statusError("nft indexer", resp); err != nil {
		return moralisPage{}, err
	}
	var page moralisPage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&page); err != nil {
		return moralisPage{}, fmt.Errorf("nft indexer: %w: decode response: %v", apperr.ErrDependency, err)
	}
	return page, nil
}
