package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"pricescout/crawler/internal/config"
	"pricescout/crawler/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePXMart struct {
	logins       atomic.Int32
	loginMessage string
	lastGoodsReq atomic.Pointer[map[string]any]
	goodsMessage string
}

func (f *fakePXMart) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		_ = json.Unmarshal(body, &req)

		switch r.URL.Path {
		case "/api/member/login":
			f.logins.Add(1)
			msg := f.loginMessage
			if msg == "" {
				msg = "操作成功"
			}
			w.Write([]byte(`{"code":200,"message":"` + msg + `","data":{"tokenHead":"Bearer ","token":"abc"}}`))
		case "/api/category/goodsCategoryQuery":
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			assert.Equal(t, "025700", req["shopNo"])
			w.Write([]byte(`{"code":200,"message":"success","data":{
				"fristLevelDatas":[{"id":1,"code":"A","parentCode":"0","name":"生鮮"}],
				"secondLevelDatas":[{"id":11,"code":"A1","parentCode":"A","name":"蔬菜"}],
				"thirdLevelDatas":[{"id":"111","code":"A1a","parentCode":"A1","name":"葉菜類"}]}}`))
		case "/api/goods/goodsQuery":
			assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
			f.lastGoodsReq.Store(&req)
			msg := f.goodsMessage
			if msg == "" {
				msg = "success"
			}
			w.Write([]byte(`{"code":200,"message":"` + msg + `","data":{"total":"2","goods":[
				{"goodsId":5001,"goodsNo":"P5001","goodsBarcode":"4710000000001","goodName":"高麗菜","goodPrice":45,"goodsSpec":"1顆"},
				{"goodsId":"5002","goodsNo":"P5002","goodsBarcode":null,"goodName":"青江菜","goodPrice":"29.0","goodsSpec":"300g"}]}}`))
		case "/api/goods/getDetail":
			assert.Equal(t, float64(5001), req["goodsId"])
			w.Write([]byte(`{"code":200,"message":"操作成功","data":{"goodsId":5001,"desc":"fresh"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestPXMart(t *testing.T, fake *fakePXMart) PXMartClient {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	hc := testHTTPConfig(srv)
	hc.BaseURL = srv.URL + "/api"
	c := NewPXMartClient(config.PXMartConfig{
		HTTPConfig:  hc,
		ChannelCode: 1,
		ShopNo:      "025700",
		PageSize:    100,
		Username:    "1",
		Password:    "123456",
	})
	closeClient(t, c)
	return c
}

func TestPXMart_LoginIsIdempotent(t *testing.T) {
	fake := &fakePXMart{}
	c := newTestPXMart(t, fake)

	require.NoError(t, c.Login(context.Background()))
	require.NoError(t, c.Login(context.Background()))
	require.NoError(t, c.Login(context.Background()))

	assert.Equal(t, int32(1), fake.logins.Load())
}

func TestPXMart_LoginRejected(t *testing.T) {
	fake := &fakePXMart{loginMessage: "帳號或密碼錯誤"}
	c := newTestPXMart(t, fake)

	err := c.Login(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.True(t, domain.IsFatal(err))

	// A rejected login leaves the client unauthenticated, so the next call tries again.
	_ = c.Login(context.Background())
	assert.Equal(t, int32(2), fake.logins.Load())
}

func TestPXMart_GetCategories(t *testing.T) {
	c := newTestPXMart(t, &fakePXMart{})
	require.NoError(t, c.Login(context.Background()))

	levels, err := c.GetCategories(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []domain.RawCategory{{ID: "1", Code: "A", ParentCode: "0", Name: "生鮮"}}, levels.First)
	assert.Equal(t, "A", levels.Second[0].ParentCode)
	assert.Equal(t, "111", levels.Third[0].ID)
}

func TestPXMart_GetGoodsPage(t *testing.T) {
	fake := &fakePXMart{}
	c := newTestPXMart(t, fake)
	require.NoError(t, c.Login(context.Background()))

	page, err := c.GetGoodsPage(context.Background(), "111", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, page.Total)
	assert.Equal(t, []domain.CatalogItem{
		{Barcode: "4710000000001", ID: "5001", ProductNo: "P5001", Name: "高麗菜", Price: 45, Unit: "1顆"},
		{ID: "5002", ProductNo: "P5002", Name: "青江菜", Price: 29, Unit: "300g"},
	}, page.Items)

	req := *fake.lastGoodsReq.Load()
	assert.Equal(t, float64(2), req["pageNum"])
	assert.Equal(t, float64(100), req["pageSize"])
	assert.Equal(t, true, req["categoryPage"])
	params := req["categoryPageParams"].(map[string]any)
	assert.Equal(t, float64(111), params["categoryId"])
	assert.Equal(t, "DESC", params["saleVolumeSort"])
}

func TestPXMart_EnvelopeMismatchIsProtocolError(t *testing.T) {
	c := newTestPXMart(t, &fakePXMart{goodsMessage: "系統繁忙"})
	require.NoError(t, c.Login(context.Background()))

	_, err := c.GetGoodsPage(context.Background(), "111", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProtocol)
	assert.NotErrorIs(t, err, domain.ErrAuth)
}

func TestPXMart_GetDetail(t *testing.T) {
	c := newTestPXMart(t, &fakePXMart{})
	require.NoError(t, c.Login(context.Background()))

	detail, err := c.GetDetail(context.Background(), "5001", "P5001", "4710000000001")
	require.NoError(t, err)
	assert.JSONEq(t, `{"goodsId":5001,"desc":"fresh"}`, string(detail))
}

func TestDecodeEnvelope_Garbage(t *testing.T) {
	err := decodeEnvelope([]byte(`<html>502</html>`), domain.ErrProtocol, nil)
	assert.ErrorIs(t, err, domain.ErrProtocol)
}

func TestFlexString(t *testing.T) {
	var v struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"x","c":null}`), &v))
	assert.Equal(t, flexString("12"), v.A)
	assert.Equal(t, flexString("x"), v.B)
	assert.Equal(t, flexString(""), v.C)
}
