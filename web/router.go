// Package web serves the customer menu page, the admin page and the form/JSON
// endpoints behind them.
package web

import (
	"context"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"food-delivery/metrics"
	"food-delivery/models"
	"food-delivery/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type MenuService interface {
	List(ctx context.Context) ([]models.MenuItem, error)
	Upsert(ctx context.Context, input models.UpsertMenuItemInput) (int64, error)
	Delete(ctx context.Context, id int64) error
}

type OrderService interface {
	PlaceOrder(ctx context.Context, input models.PlaceOrderInput) (int64, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
}

type ImageStore interface {
	StoreFileHeader(fh *multipart.FileHeader) (string, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Deps struct {
	Menu            MenuService
	Orders          OrderService
	Images          ImageStore
	DB              Pinger
	Log             logrus.FieldLogger
	PublicDir       string // served for any GET that matches no route
	UploadURLPrefix string // where stored menu images live, "/uploads" by default
}

type handler struct {
	menu   MenuService
	orders OrderService
	images ImageStore
	db     Pinger
	log    logrus.FieldLogger
}

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{menu: d.Menu, orders: d.Orders, images: d.Images, db: d.DB, log: d.Log}

	r := gin.New()
	r.Use(requestLogger(d.Log), gin.Recovery())
	r.SetHTMLTemplate(templates)

	r.GET("/", h.index)
	r.POST("/order", h.placeOrder)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	admin := r.Group("/admin")
	{
		admin.GET("", h.admin)
		admin.POST("/menu", h.upsertMenuItem)
		admin.POST("/menu/delete", h.deleteMenuItem)
	}

	if d.PublicDir != "" {
		uploads := strings.TrimSuffix(d.UploadURLPrefix, "/")
		if uploads == "" {
			uploads = "/uploads"
		}
		files := http.FileServer(fileOnlyFS{http.Dir(d.PublicDir)})
		r.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				c.Status(http.StatusNotFound)
				return
			}
			if strings.HasPrefix(c.Request.URL.Path, uploads+"/") {
				c.Header("X-Content-Type-Options", "nosniff")
				// Anything that is not a raster image is downloaded, never rendered.
				if services.ImageExt(c.Request.URL.Path) == "" {
					c.Header("Content-Type", "application/octet-stream")
					c.Header("Content-Disposition", "attachment")
				}
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}
	return r
}

// fileOnlyFS hides directories so the file server never renders a listing.
type fileOnlyFS struct {
	fs http.FileSystem
}

func (f fileOnlyFS) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if st.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Debug("request")
	}
}
