package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"food-delivery/models"
	"food-delivery/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type orderItemRequest struct {
	Name  looseString  `json:"name"`
	Price looseDecimal `json:"price"`
	Qty   looseInt     `json:"qty"`
}

type placeOrderRequest struct {
	Items   []orderItemRequest `json:"items"`
	Total   looseDecimal       `json:"total"`
	Address looseString        `json:"address"`
	Name    looseString        `json:"name"`
	Phone   looseString        `json:"phone"`
}

func (r placeOrderRequest) input() models.PlaceOrderInput {
	var items []models.OrderItem
	if r.Items != nil {
		items = make([]models.OrderItem, len(r.Items))
		for i, it := range r.Items {
			items[i] = models.OrderItem{Name: string(it.Name), Price: it.Price.Decimal(), Qty: int(it.Qty)}
		}
	}
	return models.PlaceOrderInput{
		Items:   items,
		Total:   r.Total.Decimal(),
		Address: string(r.Address),
		Name:    string(r.Name),
		Phone:   string(r.Phone),
	}
}

type deleteMenuItemRequest struct {
	ID json.Number `form:"id" json:"id"`
}

func (h *handler) index(c *gin.Context) {
	menu, err := h.menu.List(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("load menu")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{"Menu": menu})
}

func (h *handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order payload"})
		return
	}

	id, err := h.orders.PlaceOrder(c.Request.Context(), req.input())
	if err != nil {
		h.log.WithError(err).Error("place order")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not place order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orderId": id})
}

func (h *handler) admin(c *gin.Context) {
	ctx := c.Request.Context()
	menu, err := h.menu.List(ctx)
	if err != nil {
		h.log.WithError(err).Error("load menu")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		h.log.WithError(err).Error("load orders")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.HTML(http.StatusOK, "admin.html", gin.H{"Menu": menu, "Orders": orders})
}

// upsertMenuItem handles both the "add" and the per-row "save" forms. A present id
// updates that row; a new image file replaces the stored one.
func (h *handler) upsertMenuItem(c *gin.Context) {
	rawID := strings.TrimSpace(c.PostForm("id"))
	input := models.UpsertMenuItemInput{
		Name:  c.PostForm("name"),
		Price: parsePrice(c.PostForm("price")),
	}
	if rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			h.log.WithField("id", rawID).Warn("menu update with malformed id ignored")
			c.Redirect(http.StatusFound, "/admin")
			return
		}
		input.ID = &id
	}

	fh, err := c.FormFile("image")
	switch {
	case err == nil:
		ref, err := h.images.StoreFileHeader(fh)
		if err != nil {
			h.log.WithError(err).Error("store menu image")
			c.String(http.StatusInternalServerError, "Internal Server Error")
			return
		}
		input.Image = &ref
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		h.log.WithError(err).Warn("read menu form")
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	id, err := h.menu.Upsert(c.Request.Context(), input)
	log := h.log.WithField("menu_id", id)
	switch {
	case errors.Is(err, services.ErrNotFound):
		log.Warn("menu update matched no row")
	case err != nil:
		if input.Image != nil {
			log = log.WithField("orphaned_image", *input.Image)
		}
		log.WithError(err).Error("save menu item")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}

func (h *handler) deleteMenuItem(c *gin.Context) {
	var req deleteMenuItemRequest
	if err := c.ShouldBind(&req); err != nil {
		h.log.WithError(err).Warn("delete menu item: unreadable body")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	id, err := strconv.ParseInt(req.ID.String(), 10, 64)
	if err != nil {
		h.log.WithField("id", req.ID.String()).Warn("delete menu item: malformed id ignored")
		c.Redirect(http.StatusFound, "/admin")
		return
	}

	err = h.menu.Delete(c.Request.Context(), id)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		h.log.WithError(err).WithField("menu_id", id).Error("delete menu item")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}

func (h *handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		h.log.WithError(err).Warn("health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// parsePrice is lenient: anything that is not a number is stored as zero.
func parsePrice(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d
}
