package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shubhayu-dev/Sanrakshan/internal/claim"
	"github.com/shubhayu-dev/Sanrakshan/internal/codes"
	"github.com/shubhayu-dev/Sanrakshan/internal/directory"
	"github.com/shubhayu-dev/Sanrakshan/internal/ledger"
	"github.com/shubhayu-dev/Sanrakshan/internal/notification"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	db        *gorm.DB
	directory *directory.Directory
	ledger    *ledger.Ledger
	registry  *codes.Registry
	workflow  *claim.Workflow
	pool      *notification.WorkerPool
	webpush   *webpush.Options
	logger    *zap.Logger
}

// NewHandler creates a new API handler. pool may be nil when notifications
// are disabled.
func NewHandler(
	db *gorm.DB,
	d *directory.Directory,
	l *ledger.Ledger,
	r *codes.Registry,
	w *claim.Workflow,
	pool *notification.WorkerPool,
	webpushOptions *webpush.Options,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		db:        db,
		directory: d,
		ledger:    l,
		registry:  r,
		workflow:  w,
		pool:      pool,
		webpush:   webpushOptions,
		logger:    logger,
	}
}
