package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"food-delivery/models"
	"food-delivery/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memMenu struct {
	mu     sync.Mutex
	items  map[int64]models.MenuItem
	nextID int64
	err    error
}

func newMemMenu() *memMenu {
	return &memMenu{items: map[int64]models.MenuItem{}}
}

func (m *memMenu) List(context.Context) ([]models.MenuItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.MenuItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memMenu) Upsert(_ context.Context, in models.UpsertMenuItemInput) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	if in.ID == nil {
		m.nextID++
		m.items[m.nextID] = models.MenuItem{ID: m.nextID, Name: in.Name, Price: in.Price, Image: in.Image}
		return m.nextID, nil
	}
	existing, ok := m.items[*in.ID]
	if !ok {
		return *in.ID, services.ErrNotFound
	}
	existing.Name, existing.Price = in.Name, in.Price
	if in.Image != nil {
		existing.Image = in.Image
	}
	m.items[*in.ID] = existing
	return *in.ID, nil
}

func (m *memMenu) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.items[id]; !ok {
		return services.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *memMenu) get(id int64) (models.MenuItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok
}

type memOrders struct {
	mu     sync.Mutex
	orders []models.Order
	clock  time.Time
	err    error
}

func (o *memOrders) PlaceOrder(_ context.Context, in models.PlaceOrderInput) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return 0, o.err
	}
	o.clock = o.clock.Add(time.Minute)
	id := int64(len(o.orders) + 1)
	o.orders = append(o.orders, models.Order{
		ID: id, Items: in.Items, Total: in.Total, Address: in.Address,
		Name: in.Name, Phone: in.Phone, CreatedAt: o.clock,
	})
	return id, nil
}

func (o *memOrders) ListOrders(context.Context) ([]models.Order, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	out := append([]models.Order(nil), o.orders...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type memImages struct {
	stored []string
	err    error
}

func (m *memImages) StoreFileHeader(fh *multipart.FileHeader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	ref := "/uploads/" + fh.Filename
	m.stored = append(m.stored, ref)
	return ref, nil
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

type testEnv struct {
	router *gin.Engine
	menu   *memMenu
	orders *memOrders
	images *memImages
}

func setupRouter(t *testing.T, publicDir string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, _ := logtest.NewNullLogger()

	env := &testEnv{
		menu:   newMemMenu(),
		orders: &memOrders{clock: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)},
		images: &memImages{},
	}
	env.router = NewRouter(Deps{
		Menu:      env.menu,
		Orders:    env.orders,
		Images:    env.images,
		DB:        pinger{},
		Log:       log,
		PublicDir: publicDir,
	})
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path string, fields map[string]string, fileName string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("image", fileName)
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

type placeOrderResponse struct {
	Success bool   `json:"success"`
	OrderID int64  `json:"orderId"`
	Error   string `json:"error"`
}

func TestPlaceOrderThenAdminViewScenario(t *testing.T) {
	env := setupRouter(t, "")

	earlier := env.do(jsonRequest(http.MethodPost, "/order", map[string]any{
		"items": []map[string]any{{"name": "Soup", "price": 3, "qty": 1}},
		"total": 3, "address": "2 Side St", "name": "Bob", "phone": "555-2222",
	}))
	require.Equal(t, http.StatusOK, earlier.Code)

	rec := env.do(jsonRequest(http.MethodPost, "/order", map[string]any{
		"items":   []map[string]any{{"name": "Burger", "price": 5, "qty": 2}},
		"total":   10,
		"address": "1 Main St",
		"name":    "Alice",
		"phone":   "555-1111",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, int64(2), resp.OrderID)

	stored := env.orders.orders[1]
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "Burger", stored.Items[0].Name)
	assert.Equal(t, 2, stored.Items[0].Qty)
	assert.True(t, stored.Total.Equal(decimal.NewFromInt(10)))

	page := env.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusOK, page.Code)
	html := page.Body.String()

	alice := strings.Index(html, `data-id="2"`)
	bob := strings.Index(html, `data-id="1"`)
	require.NotEqual(t, -1, alice)
	require.NotEqual(t, -1, bob)
	assert.Less(t, alice, bob, "newest order is listed first")
	assert.Contains(t, html, "Burger ×2 = $10.00")
	assert.Contains(t, html, `<td class="total">$10.00</td>`)
}

func TestPlaceOrderAcceptsStringAmounts(t *testing.T) {
	env := setupRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(
		`{"items":[{"name":"Tea","price":"1.25","qty":4}],"total":"5.00","address":"x","name":"y","phone":"z"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.orders.orders[0].Items[0].Price.Equal(decimal.RequireFromString("1.25")))
}

func TestPlaceOrderMissingFieldsAreStoredAsIs(t *testing.T) {
	env := setupRouter(t, "")

	rec := env.do(jsonRequest(http.MethodPost, "/order", map[string]any{"total": 0}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", env.orders.orders[0].Name)
	assert.Empty(t, env.orders.orders[0].Items)
}

func TestPlaceOrderMalformedBody(t *testing.T) {
	env := setupRouter(t, "")

	req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(`{"items": nope`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.orders.orders)
}

func TestPlaceOrderStorageFailure(t *testing.T) {
	env := setupRouter(t, "")
	env.orders.err = errors.New("db down")

	rec := env.do(jsonRequest(http.MethodPost, "/order", map[string]any{"total": 1}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp placeOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "could not place order", resp.Error)
}

func TestIndexRendersMenu(t *testing.T) {
	env := setupRouter(t, "")
	img := "/uploads/burger.png"
	env.menu.items[1] = models.MenuItem{ID: 1, Name: "Burger", Price: decimal.NewFromInt(5), Image: &img}
	env.menu.items[2] = models.MenuItem{ID: 2, Name: "Fries", Price: decimal.RequireFromString("2.5")}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-name="Burger" data-price="5.00"`)
	assert.Contains(t, body, `<img src="/uploads/burger.png"`)
	assert.Contains(t, body, "$2.50")
	assert.Less(t, strings.Index(body, "Burger"), strings.Index(body, "Fries"))
}

func TestIndexStorageFailure(t *testing.T) {
	env := setupRouter(t, "")
	env.menu.err = errors.New("db down")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminMenuCreateWithImage(t *testing.T) {
	env := setupRouter(t, "")

	rec := env.do(multipartRequest(t, "/admin/menu", map[string]string{"name": "Burger", "price": "5"}, "burger.png", []byte("img")))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	item, ok := env.menu.get(1)
	require.True(t, ok)
	assert.Equal(t, "Burger", item.Name)
	require.NotNil(t, item.Image)
	assert.Equal(t, "/uploads/burger.png", *item.Image)
}

func TestAdminMenuCreateAndUpdateWithoutImage(t *testing.T) {
	env := setupRouter(t, "")

	rec := env.do(multipartRequest(t, "/admin/menu", map[string]string{"name": "Pizza", "price": "12"}, "", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	item, ok := env.menu.get(1)
	require.True(t, ok)
	assert.Nil(t, item.Image)

	rec = env.do(multipartRequest(t, "/admin/menu", map[string]string{"id": "1", "name": "Pizza", "price": "14"}, "", nil))
	require.Equal(t, http.StatusFound, rec.Code)
	item, _ = env.menu.get(1)
	assert.True(t, item.Price.Equal(decimal.NewFromInt(14)))
	assert.Nil(t, item.Image)
	assert.Empty(t, env.images.stored)
}

func TestAdminMenuUpdateKeepsOrReplacesImage(t *testing.T) {
	env := setupRouter(t, "")
	old := "/uploads/old.png"
	env.menu.items[3] = models.MenuItem{ID: 3, Name: "Soup", Price: decimal.NewFromInt(4), Image: &old}
	env.menu.nextID = 3

	rec := env.do(formRequest("/admin/menu", url.Values{"id": {"3"}, "name": {"Soup"}, "price": {"4.5"}}))
	require.Equal(t, http.StatusFound, rec.Code)
	item, _ := env.menu.get(3)
	require.NotNil(t, item.Image)
	assert.Equal(t, "/uploads/old.png", *item.Image)

	rec = env.do(multipartRequest(t, "/admin/menu", map[string]string{"id": "3", "name": "Soup", "price": "4.5"}, "new.png", []byte("x")))
	require.Equal(t, http.StatusFound, rec.Code)
	item, _ = env.menu.get(3)
	assert.Equal(t, "/uploads/new.png", *item.Image)
}

func TestAdminMenuLenientInput(t *testing.T) {
	env := setupRouter(t, "")

	rec := env.do(formRequest("/admin/menu", url.Values{"name": {"Mystery"}, "price": {"cheap"}}))
	require.Equal(t, http.StatusFound, rec.Code)
	item, ok := env.menu.get(1)
	require.True(t, ok)
	assert.True(t, item.Price.IsZero())

	rec = env.do(formRequest("/admin/menu", url.Values{"id": {"abc"}, "name": {"x"}}))
	assert.Equal(t, http.StatusFound, rec.Code)
	_, ok = env.menu.get(2)
	assert.False(t, ok, "a malformed id must not create a row")

	rec = env.do(formRequest("/admin/menu", url.Values{"id": {"77"}, "name": {"ghost"}}))
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestAdminMenuStorageFailure(t *testing.T) {
	env := setupRouter(t, "")
	env.menu.err = errors.New("db down")

	rec := env.do(multipartRequest(t, "/admin/menu", map[string]string{"name": "Burger"}, "b.png", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Len(t, env.images.stored, 1, "the upload is not rolled back")
}

func TestAdminMenuImageStoreFailure(t *testing.T) {
	env := setupRouter(t, "")
	env.images.err = errors.New("disk full")

	rec := env.do(multipartRequest(t, "/admin/menu", map[string]string{"name": "Burger"}, "b.png", []byte("x")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	_, ok := env.menu.get(1)
	assert.False(t, ok)
}

func TestAdminMenuDelete(t *testing.T) {
	env := setupRouter(t, "")
	env.menu.items[1] = models.MenuItem{ID: 1, Name: "Burger"}
	env.menu.items[2] = models.MenuItem{ID: 2, Name: "Fries"}

	rec := env.do(formRequest("/admin/menu/delete", url.Values{"id": {"1"}}))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	_, ok := env.menu.get(1)
	assert.False(t, ok)

	rec = env.do(jsonRequest(http.MethodPost, "/admin/menu/delete", map[string]any{"id": 2}))
	require.Equal(t, http.StatusFound, rec.Code)
	_, ok = env.menu.get(2)
	assert.False(t, ok)

	rec = env.do(formRequest("/admin/menu/delete", url.Values{"id": {"2"}}))
	assert.Equal(t, http.StatusFound, rec.Code, "deleting a missing row still redirects")

	rec = env.do(formRequest("/admin/menu/delete", url.Values{}))
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestAdminMenuDeleteKeepsOrders(t *testing.T) {
	env := setupRouter(t, "")
	env.menu.items[1] = models.MenuItem{ID: 1, Name: "Burger", Price: decimal.NewFromInt(5)}

	rec := env.do(jsonRequest(http.MethodPost, "/order", map[string]any{
		"items": []map[string]any{{"name": "Burger", "price": 5, "qty": 2}}, "total": 10,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(formRequest("/admin/menu/delete", url.Values{"id": {"1"}}))
	require.Equal(t, http.StatusFound, rec.Code)

	page := env.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Contains(t, page.Body.String(), "Burger ×2 = $10.00")
}

func TestAdminMenuDeleteStorageFailure(t *testing.T) {
	env := setupRouter(t, "")
	env.menu.err = errors.New("db down")

	rec := env.do(formRequest("/admin/menu/delete", url.Values{"id": {"1"}}))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAdminStorageFailure(t *testing.T) {
	env := setupRouter(t, "")
	env.orders.err = errors.New("db down")

	rec := env.do(httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	env := setupRouter(t, "")
	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	log, _ := logtest.NewNullLogger()
	down := NewRouter(Deps{Menu: newMemMenu(), Orders: &memOrders{}, Images: &memImages{}, DB: pinger{err: errors.New("refused")}, Log: log})
	rec = httptest.NewRecorder()
	down.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStaticFilesAndMetrics(t *testing.T) {
	public := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(public, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "uploads", "a.txt"), []byte("hello"), 0o644))
	env := setupRouter(t, public)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/uploads/a.txt", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodPost, "/uploads/a.txt", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12", "12"},
		{" 4.50 ", "4.5"},
		{"", "0"},
		{"free", "0"},
	}
	for _, tt := range tests {
		if got := parsePrice(tt.in); !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("parsePrice(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPlaceOrderKeepsLooselyTypedFields(t *testing.T) {
	env := setupRouter(t, "")

	tests := []struct {
		name  string
		body  string
		check func(t *testing.T, o models.Order)
	}{
		{
			name: "numeric phone",
			body: `{"items":[{"name":"Burger","price":5,"qty":2}],"total":10,"address":"1 Main St","name":"Alice","phone":5551111}`,
			check: func(t *testing.T, o models.Order) {
				assert.Equal(t, "5551111", o.Phone)
			},
		},
		{
			name: "string qty",
			body: `{"items":[{"name":"Burger","price":5,"qty":"2"}],"total":10,"address":"1 Main St","name":"Alice","phone":"555"}`,
			check: func(t *testing.T, o models.Order) {
				require.Len(t, o.Items, 1)
				assert.Equal(t, 2, o.Items[0].Qty)
			},
		},
		{
			name: "numeric name and null address",
			body: `{"items":[],"total":"3.5","address":null,"name":42,"phone":"555"}`,
			check: func(t *testing.T, o models.Order) {
				assert.Equal(t, "42", o.Name)
				assert.Equal(t, "", o.Address)
				assert.True(t, o.Total.Equal(decimal.RequireFromString("3.5")))
			},
		},
		{
			name: "non-numeric price",
			body: `{"items":[{"name":"Soup","price":"ask","qty":1}],"total":0}`,
			check: func(t *testing.T, o models.Order) {
				require.Len(t, o.Items, 1)
				assert.True(t, o.Items[0].Price.IsZero())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(env.orders.orders)
			req := httptest.NewRequest(http.MethodPost, "/order", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := env.do(req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Len(t, env.orders.orders, before+1)
			tt.check(t, env.orders.orders[before])
		})
	}
}

func TestUploadedHTMLIsDownloadedNotRendered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	public := t.TempDir()
	uploader, err := services.NewUploader(filepath.Join(public, "uploads"), "/uploads")
	require.NoError(t, err)

	log, _ := logtest.NewNullLogger()
	menu := newMemMenu()
	router := NewRouter(Deps{
		Menu:            menu,
		Orders:          &memOrders{},
		Images:          uploader,
		DB:              pinger{},
		Log:             log,
		PublicDir:       public,
		UploadURLPrefix: "/uploads",
	})
	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	page := []byte("<html><script>alert(document.cookie)</script></html>")
	rec := serve(multipartRequest(t, "/admin/menu", map[string]string{"name": "Evil"}, "evil.html", page))
	require.Equal(t, http.StatusFound, rec.Code)

	item, ok := menu.get(1)
	require.True(t, ok)
	require.NotNil(t, item.Image)
	assert.False(t, strings.HasSuffix(*item.Image, ".html"))

	rec = serve(httptest.NewRequest(http.MethodGet, *item.Image, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "attachment", rec.Header().Get("Content-Disposition"))

	// A file that kept an active extension on disk is still not rendered.
	require.NoError(t, os.WriteFile(filepath.Join(public, "uploads", "old.html"), page, 0o644))
	rec = serve(httptest.NewRequest(http.MethodGet, "/uploads/old.html", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))

	rec = serve(multipartRequest(t, "/admin/menu", map[string]string{"name": "Burger"}, "burger.png", []byte("\x89PNG\r\n\x1a\n")))
	require.Equal(t, http.StatusFound, rec.Code)
	burger, _ := menu.get(2)
	require.NotNil(t, burger.Image)
	rec = serve(httptest.NewRequest(http.MethodGet, *burger.Image, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestStaticDirectoriesAreNotListed(t *testing.T) {
	public := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(public, "uploads"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(public, "uploads", "secret.png"), []byte("x"), 0o644))
	env := setupRouter(t, public)

	for _, p := range []string{"/uploads/", "/uploads"} {
		rec := env.do(httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, p)
		assert.NotContains(t, rec.Body.String(), "secret.png", p)
	}
}
