// Package repository provides a minimal generic gorm-backed store for
// features that only need plain CRUD access.
package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) *Store[T] {
	return &Store[T]{db: db}
}

func (s *Store[T]) Create(ctx context.Context, record *T) error {
	return s.db.WithContext(ctx).Create(record).Error
}

// First returns the first matching record, or nil when none exists.
func (s *Store[T]) First(ctx context.Context, conds ...any) (*T, error) {
	var record T
	err := s.db.WithContext(ctx).First(&record, conds...).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
