package ormx

import (
	"context"
)

// Hook is a record lifecycle callback. Returning an error aborts the operation.
type Hook func(ctx context.Context, r *Record) error

type hookSet struct {
	beforeCreate []Hook
	afterCreate  []Hook
	beforeUpdate []Hook
	afterUpdate  []Hook
	beforeDelete []Hook
	afterDelete  []Hook
}

// OnBeforeCreate registers a hook run by Record.Save before an INSERT.
func (t *TableStructure) OnBeforeCreate(h Hook) *TableStructure {
	t.hooks.beforeCreate = append(t.hooks.beforeCreate, h)
	return t
}

// OnAfterCreate registers a hook run by Record.Save after an INSERT.
func (t *TableStructure) OnAfterCreate(h Hook) *TableStructure {
	t.hooks.afterCreate = append(t.hooks.afterCreate, h)
	return t
}

// OnBeforeUpdate registers a hook run by Record.Save before an UPDATE.
func (t *TableStructure) OnBeforeUpdate(h Hook) *TableStructure {
	t.hooks.beforeUpdate = append(t.hooks.beforeUpdate, h)
	return t
}

// OnAfterUpdate registers a hook run by Record.Save after an UPDATE.
func (t *TableStructure) OnAfterUpdate(h Hook) *TableStructure {
	t.hooks.afterUpdate = append(t.hooks.afterUpdate, h)
	return t
}

func (t *TableStructure) OnBeforeDelete(h Hook) *TableStructure {
	t.hooks.beforeDelete = append(t.hooks.beforeDelete, h)
	return t
}

func (t *TableStructure) OnAfterDelete(h Hook) *TableStructure {
	t.hooks.afterDelete = append(t.hooks.afterDelete, h)
	return t
}

func triggerHooks(ctx context.Context, hooks []Hook, r *Record) error {
	for _, h := range hooks {
		if err := h(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
