package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// cartItemRequest identifies a product by id, slug or free text and an
// optional quantity.
type cartItemRequest struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity"`
}

// getCart returns the caller's cart, creating it on first access
func (h *Handler) getCart(c *gin.Context) {
	cart, err := h.cartService.GetCart(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// addToCart adds a product to the cart, reserving stock
func (h *Handler) addToCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	result, err := h.cartService.AddItem(c.Request.Context(), currentUserID(c), req.Product, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// removeFromCart deletes a cart line; reserved stock is not returned
func (h *Handler) removeFromCart(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), currentUserID(c), req.Product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item removed from cart"})
}

// updateCartItem sets a line to an absolute quantity, settling the stock
// difference
func (h *Handler) updateCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	result, err := h.cartService.UpdateItem(c.Request.Context(), currentUserID(c), req.Product, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// clearCart removes every line from the cart
func (h *Handler) clearCart(c *gin.Context) {
	removed, err := h.cartService.Clear(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       "cart cleared",
		"items_removed": removed,
	})
}

// checkout converts the cart into an order
func (h *Handler) checkout(c *gin.Context) {
	result, err := h.orderService.Checkout(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}
