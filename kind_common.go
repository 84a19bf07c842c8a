package reflectdb

import (
	"context"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// Shared no-op behavior embedded by kinds that don't need it, so each kind
// file only states what actually distinguishes that kind.

type noDDL struct{}

func (noDDL) TableAdditions(string) []schema.ColumnSpec { return nil }

type noSubfields struct{}

func (noSubfields) SubfieldNames(string) []string { return nil }

type noSetup struct{}

func (noSetup) SetupField(context.Context) error { return nil }

type noCleanup struct{}

func (noCleanup) CleanupField(context.Context) error { return nil }

type noTarget struct{}

func (noTarget) TargetFor() *Model { return nil }

type passthroughPostUpdate struct{}

func (passthroughPostUpdate) PostUpdate(_ context.Context, content map[string]any) (map[string]any, error) {
	return content, nil
}

type passthroughPreDestroy struct{}

func (passthroughPreDestroy) PreDestroy(_ context.Context, content map[string]any) (map[string]any, error) {
	return content, nil
}
