package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type createSmartListRequest struct {
	Name string `json:"name"`
}

type smartListAddRequest struct {
	Product  string `json:"product" binding:"required"`
	Quantity int    `json:"quantity"`
}

type smartListItemRequest struct {
	ItemID   int64 `json:"item_id" binding:"required"`
	Quantity int   `json:"quantity"`
}

// listSmartLists returns the caller's smart lists, newest first
func (h *Handler) listSmartLists(c *gin.Context) {
	lists, err := h.smartListService.List(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"smart_lists": lists})
}

// createSmartList creates a named list, or returns the existing one when
// the name is already taken
func (h *Handler) createSmartList(c *gin.Context) {
	var req createSmartListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	list, created, err := h.smartListService.Create(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, list)
}

// getSmartList returns one list with its items
func (h *Handler) getSmartList(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	list, err := h.smartListService.Get(c.Request.Context(), currentUserID(c), listID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// deleteSmartList deletes a list and its items; stock is unaffected
func (h *Handler) deleteSmartList(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.smartListService.Delete(c.Request.Context(), currentUserID(c), listID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "smart list deleted"})
}

// addSmartListItem adds a product to the list without touching stock
func (h *Handler) addSmartListItem(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req smartListAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	item, err := h.smartListService.AddItem(c.Request.Context(), currentUserID(c), listID, req.Product, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "item added to smart list",
		"item":    item,
	})
}

// updateSmartListItem sets an absolute quantity on a list line
func (h *Handler) updateSmartListItem(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req smartListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	item, err := h.smartListService.UpdateItem(c.Request.Context(), currentUserID(c), listID, req.ItemID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "item updated",
		"item":    item,
	})
}

// removeSmartListItem deletes a list line
func (h *Handler) removeSmartListItem(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req smartListItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.smartListService.RemoveItem(c.Request.Context(), currentUserID(c), listID, req.ItemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item removed from smart list"})
}

// orderAll converts the list's lines into an order; the list survives
func (h *Handler) orderAll(c *gin.Context) {
	listID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, message, err := h.orderService.OrderAll(c.Request.Context(), currentUserID(c), listID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": message,
		"order":   order,
	})
}
