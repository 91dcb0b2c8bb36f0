package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"pricescout/crawler/internal/config"
	"pricescout/crawler/internal/domain"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// PXMartClient talks to the token authenticated JSON API.
type PXMartClient interface {
	Login(ctx context.Context) error
	GetCategories(ctx context.Context) (domain.RawLevels, error)
	GetGoodsPage(ctx context.Context, categoryID string, pageNum int) (*domain.ListingPage, error)
	GetDetail(ctx context.Context, goodsID, goodsNo, barcode string) (json.RawMessage, error)
	PageSize() int
	Close() error
}

type pxMartClient struct {
	rl         ratelimit.Limiter
	config     config.PXMartConfig
	httpClient *resty.Client
	token      string
}

func NewPXMartClient(cfg config.PXMartConfig) PXMartClient {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}

	return &pxMartClient{
		rl:         newLimiter(cfg.MaxRequestsPerSecond),
		config:     cfg,
		httpClient: newHTTPClient(cfg.HTTPConfig).SetHeader("Content-Type", "application/json"),
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	TokenHead string `json:"tokenHead"`
	Token     string `json:"token"`
}

// Login obtains a bearer token once; later calls reuse it.
func (c *pxMartClient) Login(ctx context.Context) error {
	if c.token != "" {
		log.Debug("Already logged in to PX Mart")
		return nil
	}

	var out loginResponse
	err := c.post(ctx, "/member/login", loginRequest{
		Username: c.config.Username,
		Password: c.config.Password,
	}, domain.ErrAuth, &out)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	if out.Token == "" {
		return fmt.Errorf("failed to log in: %w: empty token", domain.ErrAuth)
	}

	c.token = out.TokenHead + out.Token
	c.httpClient.SetHeader("Authorization", c.token)
	log.Info("🔑 Logged in to PX Mart")
	return nil
}

type categoryRequest struct {
	Channel int    `json:"channel"`
	ShopNo  string `json:"shopNo"`
}

type pxCategory struct {
	ID         flexString `json:"id"`
	Code       flexString `json:"code"`
	ParentCode flexString `json:"parentCode"`
	Name       string     `json:"name"`
}

type categoryResponse struct {
	First  []pxCategory `json:"fristLevelDatas"`
	Second []pxCategory `json:"secondLevelDatas"`
	Third  []pxCategory `json:"thirdLevelDatas"`
}

func (c *pxMartClient) GetCategories(ctx context.Context) (domain.RawLevels, error) {
	var out categoryResponse
	err := c.post(ctx, "/category/goodsCategoryQuery", categoryRequest{
		Channel: c.config.ChannelCode,
		ShopNo:  c.config.ShopNo,
	}, domain.ErrProtocol, &out)
	if err != nil {
		return domain.RawLevels{}, fmt.Errorf("failed to query categories: %w", err)
	}

	return domain.RawLevels{
		First:  toRawCategories(out.First),
		Second: toRawCategories(out.Second),
		Third:  toRawCategories(out.Third),
	}, nil
}

type categoryPageParams struct {
	CategoryID     any    `json:"categoryId"`
	SaleVolumeSort string `json:"saleVolumeSort"`
}

type goodsRequest struct {
	CategoryPage       bool               `json:"categoryPage"`
	CategoryPageParams categoryPageParams `json:"categoryPageParams"`
	Channel            int                `json:"channel"`
	PageNum            int                `json:"pageNum"`
	PageSize           int                `json:"pageSize"`
	ShopNo             string             `json:"shopNo"`
}

type pxGoods struct {
	GoodsID      flexString `json:"goodsId"`
	GoodsNo      flexString `json:"goodsNo"`
	GoodsBarcode flexString `json:"goodsBarcode"`
	GoodName     string     `json:"goodName"`
	GoodPrice    flexString `json:"goodPrice"`
	GoodsSpec    string     `json:"goodsSpec"`
}

type goodsResponse struct {
	Total flexString `json:"total"`
	Goods []pxGoods  `json:"goods"`
}

// GetGoodsPage fetches one page (1-based) of a leaf category.
func (c *pxMartClient) GetGoodsPage(ctx context.Context, categoryID string, pageNum int) (*domain.ListingPage, error) {
	var out goodsResponse
	err := c.post(ctx, "/goods/goodsQuery", goodsRequest{
		CategoryPage: true,
		CategoryPageParams: categoryPageParams{
			CategoryID:     jsonID(categoryID),
			SaleVolumeSort: "DESC",
		},
		Channel:  c.config.ChannelCode,
		PageNum:  pageNum,
		PageSize: c.config.PageSize,
		ShopNo:   c.config.ShopNo,
	}, domain.ErrProtocol, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to query goods of category %s page %d: %w", categoryID, pageNum, err)
	}

	total, err := strconv.Atoi(string(out.Total))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid total %q for category %s", domain.ErrData, out.Total, categoryID)
	}

	page := &domain.ListingPage{Total: total, Items: make([]domain.CatalogItem, 0, len(out.Goods))}
	for _, g := range out.Goods {
		price, err := parsePrice(string(g.GoodPrice))
		if err != nil {
			return nil, fmt.Errorf("goods %s: %w", g.GoodsID, err)
		}
		page.Items = append(page.Items, domain.CatalogItem{
			Barcode:   string(g.GoodsBarcode),
			ID:        string(g.GoodsID),
			ProductNo: string(g.GoodsNo),
			Name:      g.GoodName,
			Price:     price,
			Unit:      g.GoodsSpec,
		})
	}

	log.Debugf("Fetched category %s page %d: %d goods of %d", categoryID, pageNum, len(page.Items), total)
	return page, nil
}

type detailRequest struct {
	GoodsID      any    `json:"goodsId"`
	GoodsNo      string `json:"goodsNo"`
	GoodsBarcode string `json:"goodsBarcode"`
	Channel      int    `json:"channel"`
	ShopNo       string `json:"shopNo"`
}

// GetDetail returns the raw detail object of one product.
func (c *pxMartClient) GetDetail(ctx context.Context, goodsID, goodsNo, barcode string) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.post(ctx, "/goods/getDetail", detailRequest{
		GoodsID:      jsonID(goodsID),
		GoodsNo:      goodsNo,
		GoodsBarcode: barcode,
		Channel:      c.config.ChannelCode,
		ShopNo:       c.config.ShopNo,
	}, domain.ErrProtocol, &out)
	if err != nil {
		return nil, fmt.Errorf("failed to get detail of %s: %w", goodsID, err)
	}
	return out, nil
}

func (c *pxMartClient) PageSize() int {
	return c.config.PageSize
}

func (c *pxMartClient) Close() error {
	return c.httpClient.Close()
}

func (c *pxMartClient) post(ctx context.Context, path string, body any, failure error, out any) error {
	c.rl.Take()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return transportError(ctx, "POST", path, err)
	}

	if resp.IsError() {
		return statusError("POST", path, resp)
	}

	return decodeEnvelope([]byte(resp.String()), failure, out)
}

func toRawCategories(in []pxCategory) []domain.RawCategory {
	out := make([]domain.RawCategory, 0, len(in))
	for _, c := range in {
		out = append(out, domain.RawCategory{
			ID:         string(c.ID),
			Code:       string(c.Code),
			ParentCode: string(c.ParentCode),
			Name:       c.Name,
		})
	}
	return out
}

// jsonID sends numeric ids as JSON numbers, as the API issued them.
func jsonID(id string) any {
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return json.Number(id)
	}
	return id
}
