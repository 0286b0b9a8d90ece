package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"bulk-order-service/middlewares"
	"bulk-order-service/models"
	"bulk-order-service/services"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type OrderController struct {
	orders *services.OrderService
	log    zerolog.Logger
}

func NewOrderController(orders *services.OrderService, log zerolog.Logger) *OrderController {
	return &OrderController{orders: orders, log: log}
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("create", succeeded(c)) }()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	order, err := oc.orders.PlaceOrder(c.Request.Context(), middlewares.CurrentIdentity(c), req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusCreated, models.CreateOrderResponse{OrderID: order.ID, Total: order.Total()})
}

func (oc *OrderController) GetUserOrders(c *gin.Context) {
	orders, err := oc.orders.ListForBuyer(c.Request.Context(), middlewares.CurrentIdentity(c))
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusOK, models.NewOrderResponses(orders))
}

func (oc *OrderController) GetAllOrders(c *gin.Context) {
	orders, err := oc.orders.ListAll(c.Request.Context(), middlewares.CurrentIdentity(c))
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusOK, models.NewOrderResponses(orders))
}

func (oc *OrderController) GetOrderDetails(c *gin.Context) {
	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	order, err := oc.orders.GetOrder(c.Request.Context(), middlewares.CurrentIdentity(c), id)
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	c.JSON(http.StatusOK, models.NewOrderResponse(order))
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("update_status", succeeded(c)) }()

	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	var req models.StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status is required"})
		return
	}

	change, err := oc.orders.SetStatus(c.Request.Context(), middlewares.CurrentIdentity(c), id, req.Status)
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	middlewares.RecordTransition(string(change.From), string(change.Order.Status))
	c.JSON(http.StatusOK, models.NewOrderResponse(change.Order))
}

func (oc *OrderController) CancelOrder(c *gin.Context) {
	defer func() { middlewares.RecordOrderOperation("cancel", succeeded(c)) }()

	id, ok := parseID(c, "order")
	if !ok {
		return
	}
	change, err := oc.orders.Cancel(c.Request.Context(), middlewares.CurrentIdentity(c), id)
	if err != nil {
		respondError(c, oc.log, err)
		return
	}
	middlewares.RecordTransition(string(change.From), string(change.Order.Status))
	c.JSON(http.StatusOK, models.NewOrderResponse(change.Order))
}
