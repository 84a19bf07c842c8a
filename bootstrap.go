package reflectdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/syssam/reflectdb/dialect/sql/schema"
)

// bootstrap guarantees the model/field physical tables and their
// self-describing rows exist, then registers the lifecycle hooks that
// make every subsequent create(:model, …)/create(:field, …) call issue
// real DDL and update the registry. The engine is defined in terms of
// itself.
func (e *Engine) bootstrap(ctx context.Context) error {
	if err := e.ensureMetaTable(ctx, modelTableSlug, modelTableColumns); err != nil {
		return err
	}
	if err := e.ensureMetaTable(ctx, fieldTableSlug, fieldTableColumns); err != nil {
		return err
	}
	if err := e.ensureMetaRows(ctx); err != nil {
		return err
	}
	e.registerModelHooks()
	e.registerFieldHooks()
	return nil
}

func (e *Engine) ensureMetaTable(ctx context.Context, slug string, cols []schema.ColumnSpec) error {
	exists, err := e.migrator.TableExists(ctx, slug)
	if err != nil {
		return fmt.Errorf("reflectdb: bootstrap %s: %w", slug, err)
	}
	if exists {
		return nil
	}
	if err := e.migrator.CreateTable(ctx, slug, cols); err != nil {
		return fmt.Errorf("reflectdb: bootstrap %s: %w", slug, err)
	}
	return nil
}

// modelTableColumns/fieldTableColumns describe the physical shape of the
// two meta-tables directly (the base-field list plus each struct's own
// attributes), since nothing can describe them through the ordinary
// field-row machinery before they exist.
var modelTableColumns = []schema.ColumnSpec{
	{Name: "id", Type: schema.SerialType(), PrimaryKey: true, AutoIncrement: true},
	{Name: "name", Type: schema.StringType(256), Nullable: true},
	{Name: "slug", Type: schema.StringType(256), Nullable: true},
	{Name: "description", Type: schema.TextType(), Nullable: true},
	{Name: "nested", Type: schema.BoolType(), Nullable: true},
	{Name: "position", Type: schema.IntegerType(), Nullable: true},
	{Name: "status", Type: schema.IntegerType(), Nullable: true},
	{Name: "locale_id", Type: schema.IntegerType(), Nullable: true},
	{Name: "env_id", Type: schema.IntegerType(), Nullable: true},
	{Name: "locked", Type: schema.BoolType(), Nullable: true},
	{Name: "created_at", Type: schema.TimestampType(), Nullable: true, Default: "current_timestamp"},
	{Name: "updated_at", Type: schema.TimestampType(), Nullable: true, Default: "current_timestamp"},
}

var fieldTableColumns = []schema.ColumnSpec{
	{Name: "id", Type: schema.SerialType(), PrimaryKey: true, AutoIncrement: true},
	{Name: "name", Type: schema.StringType(256), Nullable: true},
	{Name: "slug", Type: schema.StringType(256), Nullable: true},
	{Name: "type", Type: schema.StringType(32), Nullable: true},
	{Name: "model_id", Type: schema.IntegerType(), Nullable: true},
	{Name: "target_id", Type: schema.IntegerType(), Nullable: true},
	{Name: "link_id", Type: schema.IntegerType(), Nullable: true},
	{Name: "link_slug", Type: schema.StringType(256), Nullable: true},
	{Name: "dependent", Type: schema.BoolType(), Nullable: true},
	{Name: "editable", Type: schema.BoolType(), Nullable: true},
	{Name: "locked", Type: schema.BoolType(), Nullable: true},
	{Name: "immutable", Type: schema.BoolType(), Nullable: true},
	{Name: "position", Type: schema.IntegerType(), Nullable: true},
	{Name: "status", Type: schema.IntegerType(), Nullable: true},
	{Name: "locale_id", Type: schema.IntegerType(), Nullable: true},
	{Name: "env_id", Type: schema.IntegerType(), Nullable: true},
	{Name: "created_at", Type: schema.TimestampType(), Nullable: true, Default: "current_timestamp"},
	{Name: "updated_at", Type: schema.TimestampType(), Nullable: true, Default: "current_timestamp"},
}

// metaField describes one column a meta-table carries, for seeding its
// own "field" rows.
type metaField struct {
	name      string
	slug      string
	kind      string
	editable  bool
	locked    bool
	immutable bool
}

var modelMetaFields = []metaField{
	{"Id", "id", KindID, false, true, true},
	{"Name", "name", KindString, true, false, false},
	{"Slug", "slug", KindSlug, true, false, false},
	{"Description", "description", KindText, true, false, false},
	{"Nested", "nested", KindBoolean, true, false, false},
	{"Position", "position", KindInteger, true, false, false},
	{"Status", "status", KindInteger, true, false, false},
	{"Locale", "locale_id", KindInteger, true, false, false},
	{"Env", "env_id", KindInteger, true, false, false},
	{"Locked", "locked", KindBoolean, true, false, false},
	{"CreatedAt", "created_at", KindTimestamp, false, true, true},
	{"UpdatedAt", "updated_at", KindTimestamp, false, true, true},
}

var fieldMetaFields = []metaField{
	{"Id", "id", KindID, false, true, true},
	{"Name", "name", KindString, true, false, false},
	{"Slug", "slug", KindSlug, true, false, false},
	{"Type", "type", KindString, true, false, true},
	{"Model", "model_id", KindInteger, true, false, true},
	{"Target", "target_id", KindInteger, true, false, true},
	{"Link", "link_id", KindInteger, false, false, false},
	{"LinkSlug", "link_slug", KindString, true, false, false},
	{"Dependent", "dependent", KindBoolean, true, false, false},
	{"Editable", "editable", KindBoolean, true, false, false},
	{"Locked", "locked", KindBoolean, true, false, false},
	{"Immutable", "immutable", KindBoolean, true, false, false},
	{"Position", "position", KindInteger, true, false, false},
	{"Status", "status", KindInteger, true, false, false},
	{"Locale", "locale_id", KindInteger, true, false, false},
	{"Env", "env_id", KindInteger, true, false, false},
	{"CreatedAt", "created_at", KindTimestamp, false, true, true},
	{"UpdatedAt", "updated_at", KindTimestamp, false, true, true},
}

// ensureMetaRows inserts the "model" rows describing "model" and "field"
// themselves, and the "field" rows describing each of their columns, if
// they are not already present. These are seeded directly through the
// store rather than Engine.Create/Update: the registry (and the hooks
// about to be registered) have nothing to dispatch against until these
// rows exist.
func (e *Engine) ensureMetaRows(ctx context.Context) error {
	modelID, err := e.ensureModelRow(ctx, "Model", modelTableSlug, "Model registry entries.", 1)
	if err != nil {
		return err
	}
	fieldID, err := e.ensureModelRow(ctx, "Field", fieldTableSlug, "Field registry entries.", 2)
	if err != nil {
		return err
	}
	if err := e.ensureFieldRows(ctx, modelID, modelMetaFields); err != nil {
		return err
	}
	if err := e.ensureFieldRows(ctx, fieldID, fieldMetaFields); err != nil {
		return err
	}
	return nil
}

func (e *Engine) ensureModelRow(ctx context.Context, name, slug, description string, position int) (int64, error) {
	rows, err := e.store.Fetch(ctx, modelTableSlug, "slug = %1", slug)
	if err != nil {
		return 0, fmt.Errorf("reflectdb: bootstrap %s row: %w", slug, err)
	}
	if len(rows) > 0 {
		return asInt64(rows[0]["id"]), nil
	}
	row, err := e.store.Insert(ctx, modelTableSlug, map[string]any{
		"name": name, "slug": slug, "description": description, "position": position, "nested": false,
	})
	if err != nil {
		return 0, fmt.Errorf("reflectdb: bootstrap %s row: %w", slug, err)
	}
	return asInt64(row["id"]), nil
}

func (e *Engine) ensureFieldRows(ctx context.Context, modelID int64, fields []metaField) error {
	for _, mf := range fields {
		rows, err := e.store.Fetch(ctx, fieldTableSlug, "model_id = %1 AND slug = %2", modelID, mf.slug)
		if err != nil {
			return fmt.Errorf("reflectdb: bootstrap field %s: %w", mf.slug, err)
		}
		if len(rows) > 0 {
			continue
		}
		if _, err := e.store.Insert(ctx, fieldTableSlug, map[string]any{
			"name": mf.name, "slug": mf.slug, "type": mf.kind, "model_id": modelID,
			"editable": mf.editable, "locked": mf.locked, "immutable": mf.immutable,
		}); err != nil {
			return fmt.Errorf("reflectdb: bootstrap field %s: %w", mf.slug, err)
		}
	}
	return nil
}

// registerModelHooks wires the six hooks that run on the "model" slug,
// making create/update/destroy against :model issue DDL and keep the
// registry current.
func (e *Engine) registerModelHooks() {
	e.AddHook(modelTableSlug, BeforeCreate, "build_table", func(ctx context.Context, env Env) (Env, error) {
		spec, _ := env["spec"].(map[string]any)
		slug := asString(spec["slug"])
		if slug == "" {
			return env, NewValidationError("slug", errors.New("required"))
		}
		if err := e.migratorFor(ctx).CreateTable(ctx, slug, []schema.ColumnSpec{{
			Name: "id", Type: schema.SerialType(), PrimaryKey: true, AutoIncrement: true,
		}}); err != nil {
			return env, NewMutationError(slug, "create_table", err)
		}
		return env, nil
	})

	e.AddHook(modelTableSlug, BeforeCreate, "add_base_fields", func(_ context.Context, env Env) (Env, error) {
		spec, _ := env["spec"].(map[string]any)
		fields, _ := spec["fields"].([]any)
		for _, bf := range BaseFields() {
			fields = append(fields, map[string]any{"name": bf.Name, "slug": bf.Name, "type": bf.Type})
		}
		spec["fields"] = fields
		env["spec"] = spec
		return env, nil
	})

	e.AddHook(modelTableSlug, AfterCreate, "invoke", func(ctx context.Context, env Env) (Env, error) {
		content, _ := env["content"].(map[string]any)
		modelID := asInt64(content["id"])

		if _, err := e.Create(ctx, fieldTableSlug, map[string]any{
			"name": "Id", "slug": "id", "type": KindID, "model_id": modelID,
			"editable": false, "locked": true, "immutable": true,
		}); err != nil {
			return env, err
		}

		spec, _ := env["spec"].(map[string]any)
		fields, _ := spec["fields"].([]any)
		for _, raw := range fields {
			fieldSpec, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			fieldSpec = cloneMap(fieldSpec)
			fieldSpec["model_id"] = modelID
			if _, err := e.Create(ctx, fieldTableSlug, fieldSpec); err != nil {
				return env, err
			}
		}

		if asBool(content["nested"]) {
			if _, err := e.Create(ctx, fieldTableSlug, map[string]any{
				"name": "Parent", "slug": "parent_id", "type": KindInteger, "model_id": modelID,
			}); err != nil {
				return env, err
			}
		}

		built, err := e.registry.InvokeModel(ctx, content)
		if err != nil {
			return env, err
		}
		e.registry.AlterModels(built)
		return env, nil
	})

	e.AddHook(modelTableSlug, AfterUpdate, "rename", func(ctx context.Context, env Env) (Env, error) {
		original, _ := env["original"].(map[string]any)
		content, _ := env["content"].(map[string]any)
		oldSlug, newSlug := asString(original["slug"]), asString(content["slug"])
		if oldSlug != "" && newSlug != "" && oldSlug != newSlug {
			if err := e.migratorFor(ctx).RenameTable(ctx, oldSlug, newSlug); err != nil {
				return env, NewMutationError(oldSlug, "rename_table", err)
			}
		}
		built, err := e.registry.InvokeModel(ctx, content)
		if err != nil {
			return env, err
		}
		e.registry.AlterModels(built)
		return env, nil
	})

	e.AddHook(modelTableSlug, AfterSave, "invoke_all", func(ctx context.Context, env Env) (Env, error) {
		if err := e.registry.InvokeModels(ctx); err != nil {
			return env, err
		}
		return env, nil
	})

	e.AddHook(modelTableSlug, AfterDestroy, "cleanup", func(ctx context.Context, env Env) (Env, error) {
		content, _ := env["content"].(map[string]any)
		slug := asString(content["slug"])
		if err := e.migratorFor(ctx).DropTable(ctx, slug); err != nil {
			return env, NewMutationError(slug, "drop_table", err)
		}
		e.registry.Evict(slug, asInt64(content["id"]))
		if err := e.registry.InvokeModels(ctx); err != nil {
			return env, err
		}
		return env, nil
	})
}

// registerFieldHooks wires the four hooks that run on the "field" slug,
// making create/update/destroy against :field apply column DDL and
// reciprocal-structure setup/teardown.
func (e *Engine) registerFieldHooks() {
	e.AddHook(fieldTableSlug, BeforeSave, "check_link_slug", func(ctx context.Context, env Env) (Env, error) {
		spec, _ := env["spec"].(map[string]any)
		linkSlug := asString(spec["link_slug"])
		if linkSlug == "" {
			return env, nil
		}
		modelID := asInt64(spec["model_id"])
		if modelID == 0 {
			if original, ok := env["original"].(map[string]any); ok {
				modelID = asInt64(original["model_id"])
			}
		}
		// Queried directly against the store rather than the registry:
		// a sibling field created moments earlier in the same model's
		// field list may not have been folded into a registry snapshot
		// yet.
		rows, err := e.storeFor(ctx).Fetch(ctx, fieldTableSlug, "model_id = %1 AND slug = %2", modelID, linkSlug)
		if err != nil {
			return env, NewQueryError(fieldTableSlug, "check_link_slug", err)
		}
		if len(rows) == 0 {
			return env, NewReciprocalSetupError("slug", linkSlug, fmt.Errorf("no sibling field %q on model %d", linkSlug, modelID))
		}
		if len(rows) > 1 {
			return env, NewNotSingularErrorWithCount(fmt.Sprintf("field %d.%s", modelID, linkSlug), len(rows))
		}
		values, _ := env["values"].(map[string]any)
		values["link_id"] = asInt64(rows[0]["id"])
		env["values"] = values
		return env, nil
	})

	e.AddHook(fieldTableSlug, AfterCreate, "add_columns", func(ctx context.Context, env Env) (Env, error) {
		content, _ := env["content"].(map[string]any)
		f, err := newFieldFromRow(content, e)
		if err != nil {
			return env, err
		}
		ownerSlug, err := e.ownerTableSlug(ctx, f.ModelID)
		if err != nil {
			return env, err
		}
		// The owning table's id column is laid down by build_table; the
		// id field row exists only for the registry's bookkeeping.
		if f.Type != KindID {
			for _, col := range f.Kind.TableAdditions(f.Slug) {
				if err := e.migratorFor(ctx).AddColumn(ctx, ownerSlug, col); err != nil {
					return env, NewMutationError(ownerSlug, "add_column "+col.Name, err)
				}
			}
		}
		if err := f.Kind.SetupField(ctx); err != nil {
			return env, err
		}
		return env, nil
	})

	e.AddHook(fieldTableSlug, AfterUpdate, "reify_field", func(ctx context.Context, env Env) (Env, error) {
		original, _ := env["original"].(map[string]any)
		content, _ := env["content"].(map[string]any)
		oldSlug, newSlug := asString(original["slug"]), asString(content["slug"])
		if oldSlug == "" || newSlug == "" || oldSlug == newSlug {
			return env, nil
		}
		f, err := newFieldFromRow(content, e)
		if err != nil {
			return env, err
		}
		ownerSlug, err := e.ownerTableSlug(ctx, f.ModelID)
		if err != nil {
			return env, err
		}
		if f.Type != KindID && len(f.Kind.TableAdditions(oldSlug)) > 0 {
			if err := e.migratorFor(ctx).RenameColumn(ctx, ownerSlug, oldSlug, newSlug); err != nil {
				return env, NewMutationError(ownerSlug, "rename_column "+oldSlug, err)
			}
		}
		oldSubs, newSubs := f.Kind.SubfieldNames(oldSlug), f.Kind.SubfieldNames(newSlug)
		for i := range oldSubs {
			if i >= len(newSubs) {
				break
			}
			if err := e.migratorFor(ctx).RenameColumn(ctx, ownerSlug, oldSubs[i], newSubs[i]); err != nil {
				return env, NewMutationError(ownerSlug, "rename_subfield "+oldSubs[i], err)
			}
		}
		// The owning model's registered descriptor still lists the old slug.
		if err := e.registry.InvokeModels(ctx); err != nil {
			return env, err
		}
		return env, nil
	})

	e.AddHook(fieldTableSlug, AfterDestroy, "drop_columns", func(ctx context.Context, env Env) (Env, error) {
		content, _ := env["content"].(map[string]any)
		f, err := newFieldFromRow(content, e)
		if err != nil {
			return env, err
		}
		if err := f.Kind.CleanupField(ctx); err != nil {
			e.logger.Warn(ctx, "drop_columns: cleanup_field failed", "slug", f.Slug, "error", err)
		}
		ownerSlug, err := e.ownerTableSlug(ctx, f.ModelID)
		if err != nil {
			// The owning model's table may already be gone (a model
			// destroy cascades straight to drop_table without walking
			// its fields individually); nothing left to drop here.
			return env, nil
		}
		if f.Type != KindID {
			for _, col := range f.Kind.TableAdditions(f.Slug) {
				if err := e.migratorFor(ctx).DropColumn(ctx, ownerSlug, col.Name); err != nil {
					e.logger.Warn(ctx, "drop_column failed", "table", ownerSlug, "column", col.Name, "error", err)
				}
			}
		}
		return env, nil
	})
}

// ownerTableSlug resolves a field's owning model's table slug, preferring
// the registry but falling back to a direct row lookup for the window
// during a model's own construction where it has not been registered yet.
func (e *Engine) ownerTableSlug(ctx context.Context, modelID int64) (string, error) {
	if m, err := e.registry.ByID(modelID); err == nil {
		return m.Slug, nil
	}
	row, err := e.storeFor(ctx).Choose(ctx, modelTableSlug, modelID)
	if err != nil {
		return "", NewQueryError(modelTableSlug, "choose", err)
	}
	if row == nil {
		return "", NewMissingModelErrorByID(modelID)
	}
	return asString(row["slug"]), nil
}
