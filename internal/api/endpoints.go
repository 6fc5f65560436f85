package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/fjod/hebec-shop/internal/domain"
)

var ErrNoToken = errors.New("login response carried no token")

// ListQuery holds the paging and filter parameters shared by list endpoints.
type ListQuery struct {
	Page       int
	Size       int
	Search     string
	CategoryID string
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.CategoryID != "" {
		v.Set("categoryId", q.CategoryID)
	}
	return v
}

// Login exchanges credentials for a Hebec bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodPost,
		path:     "/auth/login",
		endpoint: "auth_login",
		body:     map[string]string{"username": username, "password": password},
	})
	if err != nil {
		return "", err
	}

	var payload struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		Data        *struct {
			Token       string `json:"token"`
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}
	token := firstNonEmpty(payload.Token, payload.AccessToken)
	if token == "" && payload.Data != nil {
		token = firstNonEmpty(payload.Data.Token, payload.Data.AccessToken)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (c *Client) Profile(ctx context.Context, token string) (domain.Customer, error) {
	body, err := c.do(ctx, call{method: http.MethodGet, path: "/auth/profile", endpoint: "auth_profile", token: token})
	if err != nil {
		return domain.Customer{}, err
	}
	var dto customerDTO
	if err := json.Unmarshal(unwrapObject(body), &dto); err != nil {
		return domain.Customer{}, fmt.Errorf("failed to decode profile: %w", err)
	}
	return dto.toDomain(), nil
}

func (c *Client) ListProducts(ctx context.Context, q ListQuery) (domain.Page[domain.Product], error) {
	return fetchList(ctx, c, "/products", "products_list", "", q, productDTO.toDomain)
}

func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/products/" + url.PathEscape(id),
		endpoint: "products_get",
	})
	if err != nil {
		return domain.Product{}, err
	}
	var dto productDTO
	if err := json.Unmarshal(unwrapObject(body), &dto); err != nil {
		return domain.Product{}, fmt.Errorf("failed to decode product: %w", err)
	}
	p := dto.toDomain()
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}

func (c *Client) ListCategories(ctx context.Context, q ListQuery) (domain.Page[domain.Category], error) {
	return fetchList(ctx, c, "/categories", "categories_list", "", q, categoryDTO.toDomain)
}

func (c *Client) AdminCustomers(ctx context.Context, token string, q ListQuery) (domain.Page[domain.Customer], error) {
	return fetchList(ctx, c, "/admin/customers", "admin_customers", token, q, customerDTO.toDomain)
}

func (c *Client) AdminOrders(ctx context.Context, token string, q ListQuery) (domain.Page[domain.Order], error) {
	return fetchList(ctx, c, "/admin/orders", "admin_orders", token, q, orderDTO.toDomain)
}

func (c *Client) AdminProducts(ctx context.Context, token string, q ListQuery) (domain.Page[domain.Product], error) {
	return fetchList(ctx, c, "/admin/products", "admin_products", token, q, productDTO.toDomain)
}

func (c *Client) AdminCategories(ctx context.Context, token string, q ListQuery) (domain.Page[domain.Category], error) {
	return fetchList(ctx, c, "/admin/categories", "admin_categories", token, q, categoryDTO.toDomain)
}

func (c *Client) Provinces(ctx context.Context) ([]domain.Region, error) {
	return c.regions(ctx, "/address/provinces", "address_provinces")
}

func (c *Client) Districts(ctx context.Context, provinceCode string) ([]domain.Region, error) {
	return c.regions(ctx, "/address/provinces/"+url.PathEscape(provinceCode)+"/districts", "address_districts")
}

func (c *Client) Wards(ctx context.Context, districtCode string) ([]domain.Region, error) {
	return c.regions(ctx, "/address/districts/"+url.PathEscape(districtCode)+"/wards", "address_wards")
}

func (c *Client) regions(ctx context.Context, path, endpoint string) ([]domain.Region, error) {
	page, err := fetchList(ctx, c, path, endpoint, "", ListQuery{}, regionDTO.toDomain)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CreateOrder submits a composed order. The token is empty for guest checkouts.
func (c *Client) CreateOrder(ctx context.Context, token string, req domain.OrderRequest) (domain.PlacedOrder, error) {
	in := call{
		method:   http.MethodPost,
		path:     "/orders",
		endpoint: "orders_create",
		token:    token,
		body:     newOrderWire(req),
	}
	if req.IdempotencyKey != "" {
		in.header = http.Header{"Idempotency-Key": []string{req.IdempotencyKey}}
	}
	body, err := c.do(ctx, in)
	if err != nil {
		return domain.PlacedOrder{}, err
	}

	// a 2xx means the order exists remotely even when its body is unreadable
	var dto orderDTO
	if err := json.Unmarshal(unwrapObject(body), &dto); err != nil {
		c.log.Warn("order placed but response could not be decoded",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.Error(err))
		return domain.PlacedOrder{}, nil
	}
	return domain.PlacedOrder{ID: string(dto.ID), Code: firstNonEmpty(dto.Code, dto.OrderCode)}, nil
}

func fetchList[D any, T any](ctx context.Context, c *Client, path, endpoint, token string, q ListQuery, conv func(D) T) (domain.Page[T], error) {
	body, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     path,
		endpoint: endpoint,
		token:    token,
		query:    q.values(),
	})
	if err != nil {
		return domain.Page[T]{}, err
	}
	raw, err := NormalizeList[D](body)
	if err != nil {
		return domain.Page[T]{}, fmt.Errorf("%s: %w", endpoint, err)
	}
	return domain.Page[T]{Items: mapItems(raw.Items, conv), Total: raw.Total}, nil
}
