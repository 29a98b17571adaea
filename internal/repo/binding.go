package repo

import (
	"context"

	"github.com/quantline/signal-engine/internal/entity"
	"gorm.io/gorm"
)

type BindingRepo interface {
	Create(ctx context.Context, binding entity.GroupBinding) (entity.GroupBinding, error)
	ListByMarket(ctx context.Context, market entity.Market) ([]entity.GroupBinding, error)
	GetCooldowns(ctx context.Context, id int64) (entity.CooldownMap, error)
	SetCooldowns(ctx context.Context, id int64, cooldowns entity.CooldownMap) error
}

type bindingRepo struct {
	db *gorm.DB
}

func NewBindingRepo(db *gorm.DB) BindingRepo {
	return &bindingRepo{
		db: db,
	}
}

func (r *bindingRepo) Create(ctx context.Context, binding entity.GroupBinding) (entity.GroupBinding, error) {
	err := r.db.WithContext(ctx).Create(&binding).Error
	return binding, err
}

func (r *bindingRepo) ListByMarket(ctx context.Context, market entity.Market) ([]entity.GroupBinding, error) {
	var bindings []entity.GroupBinding
	err := r.db.WithContext(ctx).Where("market = ?", market).Find(&bindings).Error
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

func (r *bindingRepo) GetCooldowns(ctx context.Context, id int64) (entity.CooldownMap, error) {
	var binding entity.GroupBinding
	err := r.db.WithContext(ctx).First(&binding, id).Error
	if err != nil {
		return nil, err
	}
	if binding.Cooldowns == nil {
		return entity.CooldownMap{}, nil
	}
	return binding.Cooldowns, nil
}

func (r *bindingRepo) SetCooldowns(ctx context.Context, id int64, cooldowns entity.CooldownMap) error {
	return r.db.WithContext(ctx).Model(&entity.GroupBinding{}).
		Where("id = ?", id).
		Update("cooldowns", cooldowns).Error
}
