package production

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/asdwsxzc123/jiale-mrp/pkg/db/models"
	pkgerrors "github.com/asdwsxzc123/jiale-mrp/pkg/errors"
	"github.com/asdwsxzc123/jiale-mrp/pkg/pagination"
)

func (s *service) CreateBOM(ctx context.Context, input CreateBOMInput) (*models.BOM, error) {
	var errs error
	if input.ProductItemID == uuid.Nil {
		errs = multierr.Append(errs, errors.New("productItemId is required"))
	}
	errs = multierr.Append(errs, validateBOMLines(input.Items))
	if err := pkgerrors.Collect(pkgerrors.CodeValidation, errs, "invalid BOM"); err != nil {
		return nil, err
	}

	version := strings.TrimSpace(input.Version)
	if version == "" {
		version = DefaultBOMVersion
	}

	var created *models.BOM
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		if err := s.checkItems(ctx, tx, input.ProductItemID, input.Items); err != nil {
			return err
		}
		bom := &models.BOM{
			ProductItemID: input.ProductItemID,
			Version:       version,
			Description:   input.Description,
			IsActive:      true,
			Items:         buildBOMItems(input.Items),
		}
		if err := s.repo.WithTx(tx).CreateBOM(ctx, bom); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create BOM")
		}
		created = bom
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.bomContext(ctx, created), "bom created")
	return created, nil
}

func (s *service) UpdateBOM(ctx context.Context, input UpdateBOMInput) (*models.BOM, error) {
	if input.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bom id is required")
	}
	if input.Items != nil {
		if err := pkgerrors.Collect(pkgerrors.CodeValidation, validateBOMLines(input.Items), "invalid BOM"); err != nil {
			return nil, err
		}
	}

	var updated *models.BOM
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		bom, err := repo.FindBOM(ctx, input.ID)
		if err != nil {
			return notFound(err, "bom")
		}

		updates := map[string]any{}
		if input.Version != nil {
			version := strings.TrimSpace(*input.Version)
			if version == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "version must not be empty")
			}
			updates["version"] = version
		}
		if input.Description != nil {
			updates["description"] = *input.Description
		}
		if input.Items != nil {
			if err := s.checkItems(ctx, tx, bom.ProductItemID, input.Items); err != nil {
				return err
			}
			if err := repo.ReplaceBOMItems(ctx, bom.ID, buildBOMItems(input.Items)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace BOM items")
			}
		}
		if err := repo.UpdateBOM(ctx, bom.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update BOM")
		}
		updated, err = repo.FindBOM(ctx, bom.ID)
		if err != nil {
			return notFound(err, "bom")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.bomContext(ctx, updated), "bom updated")
	return updated, nil
}

// DeactivateBOM hides the BOM from sub-assembly expansion without deleting it.
func (s *service) DeactivateBOM(ctx context.Context, id uuid.UUID) (*models.BOM, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bom id is required")
	}
	var bom *models.BOM
	err := s.tx.WithRetry(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateBOM(ctx, id, map[string]any{"is_active": false}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate BOM")
		}
		var err error
		bom, err = repo.FindBOM(ctx, id)
		if err != nil {
			return notFound(err, "bom")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.bomContext(ctx, bom), "bom deactivated")
	return bom, nil
}

func (s *service) GetBOM(ctx context.Context, id uuid.UUID) (*models.BOM, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bom id is required")
	}
	bom, err := s.repo.FindBOM(ctx, id)
	if err != nil {
		return nil, notFound(err, "bom")
	}
	return bom, nil
}

func (s *service) ListBOMs(ctx context.Context, params ListBOMsParams) (pagination.Page[models.BOM], error) {
	p := params.Params.Normalize()
	rows, total, err := s.repo.ListBOMs(ctx, bomQuery{
		productItemID: params.ProductItemID,
		limit:         p.PageSize,
		offset:        p.Offset(),
	})
	if err != nil {
		return pagination.Page[models.BOM]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list BOMs")
	}
	return pagination.NewPage(rows, total, p), nil
}

// ExpandBOM replaces every sub-assembly line with the expansion of that
// material's active BOM. A material that reappears among its own ancestors
// fails the whole expansion.
func (s *service) ExpandBOM(ctx context.Context, id uuid.UUID) (*ExpandedBOM, error) {
	root, err := s.GetBOM(ctx, id)
	if err != nil {
		return nil, err
	}
	path := []uuid.UUID{root.ProductItemID}
	onPath := map[uuid.UUID]bool{root.ProductItemID: true}
	return s.expand(ctx, root, path, onPath)
}

func (s *service) expand(ctx context.Context, bom *models.BOM, path []uuid.UUID, onPath map[uuid.UUID]bool) (*ExpandedBOM, error) {
	out := &ExpandedBOM{
		ID:            bom.ID,
		ProductItemID: bom.ProductItemID,
		Version:       bom.Version,
		Lines:         make([]ExpandedLine, 0, len(bom.Items)),
	}
	for _, item := range bom.Items {
		line := ExpandedLine{
			MaterialItemID: item.MaterialItemID,
			Quantity:       item.Quantity,
			UOM:            item.UOM,
			IsSubAssembly:  item.IsSubAssembly,
			Notes:          item.Notes,
		}
		if item.IsSubAssembly {
			if onPath[item.MaterialItemID] {
				cycle := append(append([]uuid.UUID{}, path...), item.MaterialItemID)
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "BOM cycle detected").
					WithDetails(map[string]any{"path": cycle})
			}
			sub, err := s.repo.FindActiveBOMForProduct(ctx, item.MaterialItemID)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
			case err != nil:
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sub-assembly BOM")
			default:
				onPath[item.MaterialItemID] = true
				expanded, err := s.expand(ctx, sub, append(path, item.MaterialItemID), onPath)
				delete(onPath, item.MaterialItemID)
				if err != nil {
					return nil, err
				}
				line.Expansion = expanded
			}
		}
		out.Lines = append(out.Lines, line)
	}
	return out, nil
}

func (s *service) checkItems(ctx context.Context, tx *gorm.DB, productItemID uuid.UUID, lines []BOMLineInput) error {
	var errs error
	if _, err := s.masterData.Item(ctx, tx, productItemID); err != nil {
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			return err
		}
		errs = multierr.Append(errs, fmt.Errorf("product: %s", pkgerrors.MessageOf(err)))
	}
	for i, line := range lines {
		if _, err := s.masterData.Item(ctx, tx, line.MaterialItemID); err != nil {
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				return err
			}
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: %s", i, pkgerrors.MessageOf(err)))
		}
	}
	return pkgerrors.Collect(pkgerrors.CodeValidation, errs, "BOM references are invalid")
}

func validateBOMLines(lines []BOMLineInput) error {
	if len(lines) == 0 {
		return errors.New("at least one item is required")
	}
	var errs error
	for i, line := range lines {
		if line.MaterialItemID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: materialItemId is required", i))
		}
		if !line.Quantity.IsPositive() {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: quantity must be greater than zero", i))
		}
	}
	return errs
}

func buildBOMItems(lines []BOMLineInput) []models.BOMItem {
	items := make([]models.BOMItem, 0, len(lines))
	for i, line := range lines {
		items = append(items, models.BOMItem{
			LineNo:         i + 1,
			MaterialItemID: line.MaterialItemID,
			Quantity:       line.Quantity,
			UOM:            line.UOM,
			IsSubAssembly:  line.IsSubAssembly,
			Notes:          line.Notes,
		})
	}
	return items
}

func (s *service) bomContext(ctx context.Context, bom *models.BOM) context.Context {
	return s.logg.WithFields(ctx, map[string]any{
		"bom_id":          bom.ID.String(),
		"product_item_id": bom.ProductItemID.String(),
		"version":         bom.Version,
	})
}
