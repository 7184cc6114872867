package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/ledger"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
	"github.com/shubhayu-dev/Sanrakshan/internal/mw"
)

type itemRequest struct {
	Name           string   `json:"name" binding:"required"`
	Category       string   `json:"category"`
	Quantity       int      `json:"quantity" binding:"required"`
	Description    string   `json:"description"`
	EstimatedValue *float64 `json:"estimated_value"`
}

type createEntryRequest struct {
	Description     string        `json:"description"`
	StorageLocation string        `json:"storage_location"`
	Items           []itemRequest `json:"items" binding:"required"`
}

type itemResponse struct {
	Name           string   `json:"name"`
	Category       string   `json:"category"`
	Quantity       int      `json:"quantity"`
	Description    string   `json:"description,omitempty"`
	EstimatedValue *float64 `json:"estimated_value,omitempty"`
}

type entryResponse struct {
	EntryID         string         `json:"entry_id"`
	Status          string         `json:"status"`
	Description     string         `json:"description,omitempty"`
	StorageLocation string         `json:"storage_location,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	ClaimedAt       *time.Time     `json:"claimed_at,omitempty"`
	TotalItems      int            `json:"total_items"`
	Items           []itemResponse `json:"items"`
}

func toEntryResponse(e *model.StorageEntry) entryResponse {
	resp := entryResponse{
		EntryID:         e.EntryID,
		Status:          string(e.Status),
		Description:     e.Description,
		StorageLocation: e.StorageLocation,
		CreatedAt:       e.CreatedAt,
		ClaimedAt:       e.ClaimedAt,
		TotalItems:      e.TotalItems(),
		Items:           make([]itemResponse, 0, len(e.Items)),
	}
	for _, item := range e.Items {
		resp.Items = append(resp.Items, itemResponse{
			Name:           item.Name,
			Category:       string(item.Category),
			Quantity:       item.Quantity,
			Description:    item.Description,
			EstimatedValue: item.EstimatedValue,
		})
	}
	return resp
}

// CreateEntry handles POST /api/entries.
func (h *Handler) CreateEntry(c *gin.Context) {
	var req createEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.directory.ByPrincipal(c.Request.Context(), mw.Principal(c).ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	specs := make([]ledger.ItemSpec, 0, len(req.Items))
	for _, item := range req.Items {
		specs = append(specs, ledger.ItemSpec{
			Name:           item.Name,
			Category:       model.ItemCategory(item.Category),
			Quantity:       item.Quantity,
			Description:    item.Description,
			EstimatedValue: item.EstimatedValue,
		})
	}

	entry, code, err := h.ledger.CreateEntry(c.Request.Context(), profile, req.Description, req.StorageLocation, specs)
	if err != nil {
		h.renderError(c, err)
		return
	}

	if h.pool != nil {
		h.pool.NotifyStored(entry.ID)
	}

	resp := gin.H{
		"entry": toEntryResponse(entry),
		"code":  code.Code,
	}
	c.JSON(http.StatusCreated, resp)
}

// ListEntries handles GET /api/entries, listing the caller's own entries.
func (h *Handler) ListEntries(c *gin.Context) {
	profile, err := h.directory.ByPrincipal(c.Request.Context(), mw.Principal(c).ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	entries, err := h.ledger.ForStudent(c.Request.Context(), profile.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := make([]entryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, toEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// ownEntry resolves an entry by URL parameter and verifies the caller owns
// it. Staff bypass the ownership check. A foreign entry is reported as not
// found, never as forbidden, to keep entry IDs unguessable in practice.
func (h *Handler) ownEntry(c *gin.Context) (*model.StorageEntry, bool) {
	principal := mw.Principal(c)
	entry, err := h.ledger.ByEntryID(c.Request.Context(), c.Param("entry_id"))
	if err != nil {
		h.renderError(c, err)
		return nil, false
	}

	if principal.IsStaff {
		return entry, true
	}

	profile, err := h.directory.ByPrincipal(c.Request.Context(), principal.ID)
	if err != nil {
		h.renderError(c, err)
		return nil, false
	}
	if entry.StudentID != profile.ID {
		h.renderError(c, apperr.ErrEntryNotFound)
		return nil, false
	}
	return entry, true
}

// GetEntry handles GET /api/entries/:entry_id.
func (h *Handler) GetEntry(c *gin.Context) {
	entry, ok := h.ownEntry(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(entry))
}

type cancelEntryRequest struct {
	Reason string `json:"reason"`
}

// CancelEntry handles POST /api/entries/:entry_id/cancel.
func (h *Handler) CancelEntry(c *gin.Context) {
	entry, ok := h.ownEntry(c)
	if !ok {
		return
	}

	var req cancelEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.ledger.CancelEntry(c.Request.Context(), entry, req.Reason); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toEntryResponse(entry))
}

// GetEntryCode handles GET /api/entries/:entry_id/code.
func (h *Handler) GetEntryCode(c *gin.Context) {
	entry, ok := h.ownEntry(c)
	if !ok {
		return
	}

	code, err := h.registry.Issue(c.Request.Context(), entry)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         code.Code,
		"active":       code.Active,
		"generated_at": code.GeneratedAt,
	})
}

// RegenerateEntryCode handles POST /api/entries/:entry_id/code/regenerate.
// The old code value stops resolving immediately.
func (h *Handler) RegenerateEntryCode(c *gin.Context) {
	entry, ok := h.ownEntry(c)
	if !ok {
		return
	}

	code, err := h.registry.Regenerate(c.Request.Context(), entry)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         code.Code,
		"active":       code.Active,
		"generated_at": code.GeneratedAt,
	})
}

// GetDashboard handles GET /api/dashboard with per-student statistics.
func (h *Handler) GetDashboard(c *gin.Context) {
	profile, err := h.directory.ByPrincipal(c.Request.Context(), mw.Principal(c).ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	stats, err := h.ledger.StatsForStudent(c.Request.Context(), profile.ID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student": toStudentResponse(profile),
		"stats":   stats,
	})
}
