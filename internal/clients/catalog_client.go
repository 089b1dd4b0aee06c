package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tm-acme-shop/acme-shop-storefront/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/models"
)

// CatalogClient fetches the product catalog.
type CatalogClient interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
}

// HTTPCatalogClient implements CatalogClient against a Fake Store API
// compatible endpoint.
type HTTPCatalogClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.LoggerV2
}

// NewHTTPCatalogClient creates a new HTTP-based catalog client.
func NewHTTPCatalogClient(cfg config.ServiceConfig, logger *logging.LoggerV2) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// FetchProducts returns the full product list. The endpoint has no paging.
func (c *HTTPCatalogClient) FetchProducts(ctx context.Context) ([]models.Product, error) {
	url := fmt.Sprintf("%s/products", c.baseURL)
	c.logger.Debug("Fetching catalog", logging.Fields{"url": url})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if requestID := middleware.RequestIDFromContext(ctx); requestID != "" {
		req.Header.Set(middleware.HeaderRequestID, requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to fetch catalog", logging.Fields{"error": err.Error()})
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var products []models.Product
	if err := json.NewDecoder(resp.Body).Decode(&products); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c.logger.Info("Catalog fetched", logging.Fields{"products": len(products)})
	return products, nil
}
