package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/metrics"
	"github.com/waleedsbi/atm-master/internal/models"
)

// auditWriteTimeout bounds a single audit insert.
const auditWriteTimeout = 10 * time.Second

// AuditWorker buffers audit entries and writes them via a single worker
// goroutine. Recording is best effort: failures are logged and dropped.
type AuditWorker struct {
	auditor Auditor
	log     *logrus.Logger
	jobs    chan *models.AuditEntry
}

// NewAuditWorker creates an AuditWorker with the given queue capacity.
func NewAuditWorker(auditor Auditor, log *logrus.Logger, queueSize int) *AuditWorker {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &AuditWorker{
		auditor: auditor,
		log:     log,
		jobs:    make(chan *models.AuditEntry, queueSize),
	}
}

// Enqueue adds an audit entry. Non-blocking; drops the entry if the queue is full.
func (w *AuditWorker) Enqueue(entry *models.AuditEntry) {
	select {
	case w.jobs <- entry:
		metrics.AuditQueueDepth.Set(float64(len(w.jobs)))
	default:
		w.log.WithField("action", entry.Action).Warn("audit queue full, dropping entry")
	}
}

// Run processes audit entries until the context is cancelled, then drains remaining entries.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case entry := <-w.jobs:
			w.process(entry)
		}
	}
}

func (w *AuditWorker) drain() {
	for {
		select {
		case entry := <-w.jobs:
			w.process(entry)
		default:
			return
		}
	}
}

func (w *AuditWorker) process(entry *models.AuditEntry) {
	metrics.AuditQueueDepth.Set(float64(len(w.jobs)))

	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	if err := w.auditor.RecordAudit(ctx, *entry); err != nil {
		w.log.WithError(err).WithField("action", entry.Action).Warn("audit record failed")
	}
}
