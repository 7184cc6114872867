package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shubhayu-dev/Sanrakshan/internal/directory"
	"github.com/shubhayu-dev/Sanrakshan/internal/model"
	"github.com/shubhayu-dev/Sanrakshan/internal/mw"
)

type registerStudentRequest struct {
	RollNumber  string `json:"roll_number" binding:"required"`
	FullName    string `json:"full_name" binding:"required"`
	Department  string `json:"department" binding:"required"`
	Year        int    `json:"year" binding:"required"`
	PhoneNumber string `json:"phone_number"`
}

type studentResponse struct {
	RollNumber  string `json:"roll_number"`
	FullName    string `json:"full_name"`
	Department  string `json:"department"`
	Year        int    `json:"year"`
	PhoneNumber string `json:"phone_number"`
}

func toStudentResponse(p *model.StudentProfile) studentResponse {
	return studentResponse{
		RollNumber:  p.RollNumber,
		FullName:    p.FullName,
		Department:  p.Department,
		Year:        p.Year,
		PhoneNumber: p.PhoneNumber,
	}
}

// RegisterStudent handles POST /api/students.
func (h *Handler) RegisterStudent(c *gin.Context) {
	var req registerStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.directory.Register(c.Request.Context(), mw.Principal(c).ID, directory.RegisterInput{
		RollNumber:  req.RollNumber,
		FullName:    req.FullName,
		Department:  req.Department,
		Year:        req.Year,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toStudentResponse(profile))
}

// GetMe handles GET /api/students/me.
func (h *Handler) GetMe(c *gin.Context) {
	profile, err := h.directory.ByPrincipal(c.Request.Context(), mw.Principal(c).ID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStudentResponse(profile))
}

type updateContactRequest struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
}

// UpdateMe handles PATCH /api/students/me. The roll number is immutable and
// not accepted here.
func (h *Handler) UpdateMe(c *gin.Context) {
	var req updateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profile, err := h.directory.UpdateContact(c.Request.Context(), mw.Principal(c).ID, req.FullName, req.PhoneNumber)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStudentResponse(profile))
}
