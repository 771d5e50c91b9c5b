package services

import (
	"context"
	"strings"

	apperrors "famledger/internal/errors"
	"famledger/internal/models"
	"famledger/internal/pagination"
	"famledger/internal/store"
)

// maxCategoryDepth bounds the parent walk used for cycle detection.
const maxCategoryDepth = 64

// categoryService handles category-related business logic.
type categoryService struct {
	uow store.UnitOfWork
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(uow store.UnitOfWork) CategoryServicer {
	return &categoryService{uow: uow}
}

func validCategoryType(t models.CategoryType) bool {
	switch t {
	case models.CategoryTypeIncome, models.CategoryTypeExpense, models.CategoryTypeTransfer, models.CategoryTypeSavings:
		return true
	}
	return false
}

func validBudgetGroup(g *models.BudgetGroup) bool {
	if g == nil {
		return true
	}
	switch *g {
	case models.BudgetGroupNecessities, models.BudgetGroupWants, models.BudgetGroupSavings:
		return true
	}
	return false
}

// CreateCategory creates a new category
func (s *categoryService) CreateCategory(ctx context.Context, userID string, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if !validCategoryType(in.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown category type")
	}
	if !validBudgetGroup(in.BudgetGroup) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown budget group")
	}

	category := &models.Category{
		OwnerID:     userID,
		Name:        name,
		Type:        in.Type,
		Description: in.Description,
		Icon:        in.Icon,
		Color:       in.Color,
		ParentID:    nonEmpty(in.ParentID),
		BudgetGroup: in.BudgetGroup,
		IsActive:    true,
	}

	err := s.uow.Do(ctx, func(r *store.Repos) error {
		if category.ParentID != nil {
			if _, err := loadCategory(r, userID, *category.ParentID); err != nil {
				return apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
			}
		}
		return internalErr(r.Categories.Create(category))
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// GetUserCategories retrieves a paginated list of active categories, optionally of one type.
func (s *categoryService) GetUserCategories(ctx context.Context, userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	page.Defaults()

	var result pagination.PageResponse[models.Category]
	err := s.uow.View(ctx, func(r *store.Repos) error {
		categories, total, err := r.Categories.List(userID, categoryType, page)
		if err != nil {
			return internalErr(err)
		}
		result = pagination.NewPageResponse(categories, page.Page, page.PageSize, total)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetCategoryByID retrieves a category by ID for a specific user
func (s *categoryService) GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error) {
	var category *models.Category
	err := s.uow.View(ctx, func(r *store.Repos) error {
		var err error
		category, err = loadCategory(r, userID, categoryID)
		return err
	})
	return category, err
}

// UpdateCategory replaces the writable fields of a category. The parent
// chain must resolve and must not lead back to the category.
func (s *categoryService) UpdateCategory(ctx context.Context, userID, categoryID string, in CategoryInput) (*models.Category, error) {
	if !validBudgetGroup(in.BudgetGroup) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown budget group")
	}

	var category *models.Category
	err := s.uow.Do(ctx, func(r *store.Repos) error {
		var err error
		category, err = loadCategory(r, userID, categoryID)
		if err != nil {
			return err
		}

		parentID := nonEmpty(in.ParentID)
		if parentID != nil {
			if *parentID == categoryID {
				return apperrors.ErrSelfParentCategory
			}
			if err := checkParentChain(r, userID, categoryID, *parentID); err != nil {
				return err
			}
		}

		if name := strings.TrimSpace(in.Name); name != "" {
			category.Name = name
		}
		if in.Type != "" {
			if !validCategoryType(in.Type) {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown category type")
			}
			category.Type = in.Type
		}
		category.Description = in.Description
		category.Icon = in.Icon
		category.Color = in.Color
		category.ParentID = parentID
		category.BudgetGroup = in.BudgetGroup
		return internalErr(r.Categories.Update(category))
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

// checkParentChain walks up from parentID and fails if it reaches categoryID.
func checkParentChain(r *store.Repos, userID, categoryID, parentID string) error {
	current := parentID
	for depth := 0; depth < maxCategoryDepth; depth++ {
		parent, err := loadCategory(r, userID, current)
		if err != nil {
			return apperrors.WithMessage(apperrors.ErrCategoryNotFound, "parent category not found")
		}
		if parent.ParentID == nil {
			return nil
		}
		if *parent.ParentID == categoryID {
			return apperrors.ErrCategoryCycle
		}
		current = *parent.ParentID
	}
	return apperrors.ErrCategoryCycle
}

// DeleteCategory deactivates a category that has no active children.
func (s *categoryService) DeleteCategory(ctx context.Context, userID, categoryID string) error {
	return s.uow.Do(ctx, func(r *store.Repos) error {
		category, err := loadCategory(r, userID, categoryID)
		if err != nil {
			return err
		}
		hasChildren, err := r.Categories.HasActiveChildren(categoryID)
		if err != nil {
			return internalErr(err)
		}
		if hasChildren {
			return apperrors.ErrCategoryHasChildren
		}
		category.IsActive = false
		return internalErr(r.Categories.Update(category))
	})
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
