package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"go.uber.org/zap"
)

// InvoiceArchiver stores analysed invoices as <base>/<employee>/<invoice id>.pdf
type InvoiceArchiver struct {
	folders *FolderManager
	files   *LocalFileStorage
	logger  *zap.Logger
}

var _ port.InvoiceArchiver = (*InvoiceArchiver)(nil)

// NewInvoiceArchiver creates an archiver rooted at baseDir
func NewInvoiceArchiver(baseDir string, logger *zap.Logger) *InvoiceArchiver {
	return &InvoiceArchiver{
		folders: NewFolderManager(baseDir, logger),
		files:   NewLocalFileStorage(baseDir, logger),
		logger:  logger,
	}
}

// Archive writes content and returns the path it was stored at
func (a *InvoiceArchiver) Archive(ctx context.Context, employee, invoiceID string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if invoiceID == "" {
		return "", fmt.Errorf("cannot archive invoice: empty invoice id")
	}
	if strings.TrimSpace(employee) == "" {
		return "", fmt.Errorf("cannot archive invoice: empty employee name")
	}

	folder := a.folders.EmployeeFolderPath(employee)
	if !a.folders.FolderExists(employee) {
		created, err := a.folders.CreateEmployeeFolder(employee)
		if err != nil {
			return "", err
		}
		folder = created
	}

	fullPath := filepath.Join(folder, SanitizeFolderName(invoiceID)+".pdf")
	if err := a.files.SaveFile(fullPath, content); err != nil {
		return "", err
	}

	a.logger.Info("Invoice archived",
		zap.String("employee", employee),
		zap.String("invoice_id", invoiceID),
		zap.String("path", fullPath))
	return fullPath, nil
}
