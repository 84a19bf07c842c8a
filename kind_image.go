package reflectdb

import "context"

// imageKind: reserved. Contributes no DDL and no read
// value; reserves the subfield name <slug>_id for a future asset
// reference. Treated as a placeholder pending a real asset store.
type imageKind struct {
	noDDL
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f *Field
}

func (k *imageKind) SubfieldNames(columnSlug string) []string {
	return []string{columnSlug + "_id"}
}

// UpdateValues always returns the accumulator unchanged.
func (k *imageKind) UpdateValues(_ context.Context, _ map[string]any, acc map[string]any) map[string]any {
	return acc
}

func (k *imageKind) FieldFrom(_ context.Context, _ map[string]any, _ Options) (any, error) {
	return nil, nil
}

func (k *imageKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
