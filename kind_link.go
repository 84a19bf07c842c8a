package reflectdb

import "context"

// linkKind: reserved, used as a marker only. Contributes no
// DDL, no subfields, no read value. Treated as a placeholder for a future
// generic reference kind.
type linkKind struct {
	noDDL
	noSubfields
	noSetup
	noCleanup
	noTarget
	passthroughPostUpdate
	passthroughPreDestroy

	f *Field
}

// UpdateValues always returns the accumulator unchanged.
func (k *linkKind) UpdateValues(_ context.Context, _ map[string]any, acc map[string]any) map[string]any {
	return acc
}

func (k *linkKind) FieldFrom(_ context.Context, _ map[string]any, _ Options) (any, error) {
	return nil, nil
}

func (k *linkKind) Render(ctx context.Context, content map[string]any, opts Options) (any, error) {
	return k.FieldFrom(ctx, content, opts)
}
