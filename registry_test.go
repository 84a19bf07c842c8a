package reflectdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAlterModelsMergesWithoutDisturbingOthers(t *testing.T) {
	r := NewRegistry(nil)

	widget := &Model{ID: 1, Slug: "widget", Fields: map[string]*Field{
		"name": {ID: 10, Slug: "name", ModelID: 1},
	}}
	r.AlterModels(widget)

	gadget := &Model{ID: 2, Slug: "gadget", Fields: map[string]*Field{
		"size": {ID: 20, Slug: "size", ModelID: 2},
	}}
	r.AlterModels(gadget)

	got, err := r.BySlug("widget")
	require.NoError(t, err)
	require.Equal(t, widget, got)

	got, err = r.BySlug("gadget")
	require.NoError(t, err)
	require.Equal(t, gadget, got)

	f, err := r.FieldByID(20)
	require.NoError(t, err)
	require.Equal(t, "size", f.Slug)
}

func TestRegistryResolveAcceptsSlugOrID(t *testing.T) {
	r := NewRegistry(nil)
	widget := &Model{ID: 1, Slug: "widget", Fields: map[string]*Field{}}
	r.AlterModels(widget)

	bySlug, err := r.Resolve("widget")
	require.NoError(t, err)
	require.Same(t, widget, bySlug)

	byID, err := r.Resolve(int64(1))
	require.NoError(t, err)
	require.Same(t, widget, byID)

	byIntID, err := r.Resolve(1)
	require.NoError(t, err)
	require.Same(t, widget, byIntID)

	_, err = r.Resolve("missing")
	require.Error(t, err)
	require.True(t, IsMissingModel(err))
}

func TestRegistryEvictRemovesModelAndItsFields(t *testing.T) {
	r := NewRegistry(nil)
	widget := &Model{ID: 1, Slug: "widget", Fields: map[string]*Field{
		"name": {ID: 10, Slug: "name", ModelID: 1},
	}}
	other := &Model{ID: 2, Slug: "gadget", Fields: map[string]*Field{
		"size": {ID: 20, Slug: "size", ModelID: 2},
	}}
	r.AlterModels(widget)
	r.AlterModels(other)

	r.Evict("widget", 1)

	_, err := r.BySlug("widget")
	require.Error(t, err)
	require.True(t, IsMissingModel(err))

	_, err = r.FieldByID(10)
	require.Error(t, err)

	// The other model and its fields must survive the eviction.
	got, err := r.BySlug("gadget")
	require.NoError(t, err)
	require.Equal(t, other, got)
	f, err := r.FieldByID(20)
	require.NoError(t, err)
	require.Equal(t, "size", f.Slug)
}
