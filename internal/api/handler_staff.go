package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/shubhayu-dev/Sanrakshan/internal/apperr"
	"github.com/shubhayu-dev/Sanrakshan/internal/claim"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
	"github.com/shubhayu-dev/Sanrakshan/internal/mw"
)

func scanSource(c *gin.Context) claim.Source {
	return claim.Source{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// VerifyCode handles GET /api/staff/verify?code=XXXX-XXXX. Read-only
// preview; records a verify event but never changes entry state.
func (h *Handler) VerifyCode(c *gin.Context) {
	codeString := c.Query("code")
	if codeString == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no code provided"})
		return
	}

	result, err := h.workflow.Verify(c.Request.Context(), codeString, mw.Principal(c).ID, scanSource(c))
	if err != nil {
		h.renderError(c, err)
		return
	}

	if result.Outcome == claim.OutcomeDeactivated {
		c.JSON(http.StatusOK, gin.H{
			"success":   false,
			"outcome":   string(claim.OutcomeDeactivated),
			"message":   "this code has been deactivated (items already claimed)",
			"can_claim": false,
		})
		return
	}

	entry := result.Entry
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"outcome": string(result.Outcome),
		"message": "code verified successfully",
		"student_info": gin.H{
			"name":        entry.Student.FullName,
			"roll_number": entry.Student.RollNumber,
			"department":  entry.Student.Department,
			"phone":       entry.Student.PhoneNumber,
		},
		"storage_info": gin.H{
			"entry_id":    entry.EntryID,
			"created_at":  entry.CreatedAt,
			"description": entry.Description,
			"location":    entry.StorageLocation,
			"status":      string(entry.Status),
			"total_items": entry.TotalItems(),
		},
		"items":     toEntryResponse(entry).Items,
		"can_claim": result.CanClaim,
	})
}

type claimRequest struct {
	Code  string `json:"code" binding:"required"`
	Notes string `json:"notes"`
}

// ConfirmClaim handles POST /api/staff/claims. The ledger transition, code
// deactivation and claim audit event commit atomically.
func (h *Handler) ConfirmClaim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.workflow.Claim(c.Request.Context(), req.Code, mw.Principal(c).ID, req.Notes, scanSource(c))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "items successfully claimed, code deactivated",
		"entry_id":   result.Entry.EntryID,
		"claimed_at": result.ClaimedAt,
	})
}

type scanResponse struct {
	Code       string `json:"code"`
	ScannedBy  string `json:"scanned_by"`
	ScannedAt  string `json:"scanned_at"`
	Action     string `json:"action"`
	Valid      bool   `json:"valid"`
	Notes      string `json:"notes,omitempty"`
	RollNumber string `json:"roll_number,omitempty"`
	EntryID    string `json:"entry_id,omitempty"`
}

// ListScans handles GET /api/staff/scans?limit=N, the audit history view.
func (h *Handler) ListScans(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	scans, err := h.registry.RecentScans(c.Request.Context(), limit)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := make([]scanResponse, 0, len(scans))
	for _, scan := range scans {
		row := scanResponse{
			Code:      scan.CodeValue,
			ScannedBy: scan.ScannedBy,
			ScannedAt: scan.ScannedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Action:    string(scan.Action),
			Valid:     scan.Valid,
			Notes:     scan.Notes,
		}
		if scan.Code != nil {
			row.EntryID = scan.Code.Entry.EntryID
			row.RollNumber = scan.Code.Entry.Student.RollNumber
		}
		resp = append(resp, row)
	}
	c.JSON(http.StatusOK, resp)
}

// DeleteEntry handles DELETE /api/staff/entries/:entry_id. Active entries
// cannot be deleted.
func (h *Handler) DeleteEntry(c *gin.Context) {
	entry, err := h.ledger.ByEntryID(c.Request.Context(), c.Param("entry_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	if entry.Status == model.StatusActive {
		h.renderError(c, &apperr.InvalidTransitionError{Op: "delete", From: string(entry.Status)})
		return
	}

	if err := h.ledger.DeleteEntry(c.Request.Context(), entry); err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ExpireEntry handles POST /api/staff/entries/:entry_id/expire.
func (h *Handler) ExpireEntry(c *gin.Context) {
	entry, err := h.ledger.ByEntryID(c.Request.Context(), c.Param("entry_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.ledger.ExpireEntry(c.Request.Context(), entry); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entry_id": entry.EntryID,
		"status":   string(model.StatusExpired),
	})
}
