package sequence

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Allocator hands out document numbers. Next joins the caller's transaction so the
// number commits or rolls back with the document that uses it.
type Allocator interface {
	Next(ctx context.Context, tx *gorm.DB, typeCode string) (string, error)
	NextDocNo(ctx context.Context, typeCode string) (string, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

func NewService(repo Repository, tx txRunner) (Allocator, error) {
	if repo == nil {
		return nil, fmt.Errorf("sequence repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Next(ctx context.Context, tx *gorm.DB, typeCode string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(typeCode))
	if code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "sequence type code is required")
	}

	issued, err := s.repo.WithTx(tx).Increment(ctx, code)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate document number")
	}
	if issued.Number < 1 {
		return "", pkgerrors.Newf(pkgerrors.CodeInternal, "sequence %s returned invalid number %d", code, issued.Number)
	}
	return Format(issued.Format, issued.Prefix, issued.Number), nil
}

// NextDocNo allocates in a transaction of its own. Prefer Next when the number
// labels rows written in the same unit of work.
func (s *service) NextDocNo(ctx context.Context, typeCode string) (string, error) {
	var docNo string
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		var err error
		docNo, err = s.Next(ctx, tx, typeCode)
		return err
	})
	if err != nil {
		return "", err
	}
	return docNo, nil
}
