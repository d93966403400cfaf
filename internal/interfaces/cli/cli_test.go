package cli

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/textileplan/backend/internal/application/costing"
	"github.com/textileplan/backend/internal/infrastructure/storage"
)

const providersCSV = `Nombre *,Correo,Teléfono,Dirección,Notas
Hilos del Valle,ventas@hilosdelvalle.co,+57 2 555 0101,Cra 5 #10-20,Hilos de algodón
Tintes Andinos,,,"Calle 8, Medellín",
`

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "proveedores.csv", providersCSV)

	code, out, _ := env.run(t, "import", "providers", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Import finished: 2 imported, 0 skipped, 0 errors")
	assert.EqualValues(t, 2, env.providerCount(t))

	// re-import skips every row by name
	code, out, _ = env.run(t, "import", "proveedores", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "0 imported, 2 skipped, 0 errors")
}

func TestImport_RowErrors(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "bad.csv", "name,email\nGood One,good@example.com\nBad One,not-an-email\n")

	code, out, _ := env.run(t, "import", "providers", path)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, out, "1 imported, 0 skipped, 1 errors")
	assert.Contains(t, out, "Line 3: Invalid email format: not-an-email")
	assert.EqualValues(t, 1, env.providerCount(t))
}

func TestImport_FailFast(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "bad.csv", "name,email\nGood One,good@example.com\nBad One,not-an-email\n")

	code, _, stderr := env.run(t, "import", "providers", path, "--fail-fast")
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stderr, "Import failed at line 3")
	assert.EqualValues(t, 0, env.providerCount(t))
}

func TestImport_DryRun(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "proveedores.csv", providersCSV)

	code, out, _ := env.run(t, "import", "providers", path, "--dry-run")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Validation (dry run) finished")
	assert.EqualValues(t, 0, env.providerCount(t))
}

func TestImport_JSON(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "proveedores.csv", providersCSV)

	code, out, _ := env.run(t, "import", "providers", path, "--json")
	require.Equal(t, exitOK, code)

	var res struct {
		ImportedCount int `json:"imported_count"`
		ErrorCount    int `json:"error_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.ImportedCount)
	assert.Equal(t, 0, res.ErrorCount)
}

func TestImport_UsageErrors(t *testing.T) {
	env := newTestEnv(t)
	txt := env.writeFile(t, "proveedores.txt", providersCSV)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"extension", []string{"import", "providers", txt}, "file must have .csv extension"},
		{"entity", []string{"import", "clients", txt}, `unsupported entity "clients"`},
		{"missing file", []string{"import", "providers", filepath.Join(env.dir, "nope.csv")}, "cannot open"},
		{"arguments", []string{"import", "providers"}, "accepts 2 arg(s)"},
		{"unknown flag", []string{"import", "providers", txt, "--bogus"}, "unknown flag"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := env.run(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestImport_EmptyFile(t *testing.T) {
	env := newTestEnv(t)
	path := env.writeFile(t, "empty.csv", "")

	code, _, stderr := env.run(t, "import", "providers", path)
	assert.Equal(t, exitFailure, code)
	assert.True(t, strings.HasPrefix(stderr, "Error: "))
}

func TestExport_DefaultDirectory(t *testing.T) {
	env := newTestEnv(t)
	code, _, _ := env.run(t, "import", "providers", env.writeFile(t, "p.csv", providersCSV))
	require.Equal(t, exitOK, code)

	code, out, _ := env.run(t, "export", "providers")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Exported 2 providers to ")

	entries, err := os.ReadDir(env.rt.Config.Export.Directory)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "proveedores_"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".csv"))

	data, err := os.ReadFile(filepath.Join(env.rt.Config.Export.Directory, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Nombre")
	assert.Contains(t, string(data), "Hilos del Valle")
}

func TestExport_Stdout(t *testing.T) {
	env := newTestEnv(t)
	code, _, _ := env.run(t, "import", "providers", env.writeFile(t, "p.csv", providersCSV))
	require.Equal(t, exitOK, code)

	code, out, _ := env.run(t, "export", "providers", "-o", "-", "--locale", "en", "--name-contains", "andinos")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "Tintes Andinos")
	assert.NotContains(t, out, "Hilos del Valle")
}

func TestExport_TemplateXLSX(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "plantilla.xlsx")

	code, out, _ := env.run(t, "export", "providers", "--template", "-o", path)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Exported import template to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// xlsx files are zip archives
	assert.Equal(t, "PK", string(data[:2]))
}

func TestExport_ObjectStorage(t *testing.T) {
	env := newTestEnv(t)
	code, _, _ := env.run(t, "import", "providers", env.writeFile(t, "p.csv", providersCSV))
	require.Equal(t, exitOK, code)

	code, out, _ := env.run(t, "export", "providers", "-o", "s3://planning/daily/proveedores.csv")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Exported 2 providers")
	assert.Contains(t, out, "Download: https://storage.example.com/planning/daily/proveedores.csv")

	data, ok := env.objects.Object(storage.Location{Bucket: "planning", Key: "daily/proveedores.csv"})
	require.True(t, ok)
	assert.Contains(t, string(data), "Tintes Andinos")
}

func TestExport_UsageErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"date", []string{"export", "providers", "--date-from", "01/02/2024"}, "invalid --date-from"},
		{"range", []string{"export", "providers", "--date-from", "2024-03-02", "--date-to", "2024-03-01"}, "--date-from must not be after --date-to"},
		{"format", []string{"export", "providers", "--format", "pdf"}, "pdf"},
		{"entity", []string{"export", "budgets"}, "unsupported entity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := env.run(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestRecalculate_All(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGraph(t)

	code, out, _ := env.run(t, "recalculate", "all")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "Jean azul")
	assert.Contains(t, out, "3000.00")
	assert.Contains(t, out, "30000.00")
	assert.Contains(t, out, "5 updated, 0 failed")
	assert.Equal(t, "2500", env.templateTotal(t, g).String())
}

func TestRecalculate_DryRun(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGraph(t)

	code, out, _ := env.run(t, "recalculate", "templates", "--dry-run")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Dry run, nothing saved.")
	assert.Contains(t, out, "2500.00")
	assert.True(t, env.templateTotal(t, g).IsZero())
}

func TestRecalculate_TriggerJSON(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGraph(t)

	code, out, _ := env.run(t, "recalculate", "templates", "--json")
	require.Equal(t, exitOK, code)

	var env1 struct {
		Success      bool   `json:"success"`
		Message      string `json:"message"`
		UpdatedCount *int   `json:"updated_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env1))
	assert.True(t, env1.Success)
	require.NotNil(t, env1.UpdatedCount)
	assert.Equal(t, 1, *env1.UpdatedCount)

	code, out, _ = env.run(t, "recalculate", "templates", "--json", "--id", g.template.ID.String())
	require.Equal(t, exitOK, code)
	var env2 struct {
		Success  bool   `json:"success"`
		Message  string `json:"message"`
		NewValue string `json:"new_value"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &env2))
	assert.True(t, env2.Success)
	assert.Contains(t, env2.Message, "Jean clásico")
	assert.Equal(t, "2500", env2.NewValue)
}

func TestRecalculate_PropagateFromProduct(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGraph(t)

	code, out, _ := env.run(t, "recalculate", "all")
	require.Equal(t, exitOK, code, out)

	code, out, _ = env.run(t, "recalculate", "from", "--kind", "end_product", "--id", g.product.ID.String(), "--json")
	require.Equal(t, exitOK, code)

	var report struct {
		Results []struct {
			Node struct {
				Kind string `json:"kind"`
			} `json:"node"`
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	kinds := make([]string, 0, len(report.Results))
	for _, r := range report.Results {
		kinds = append(kinds, r.Node.Kind)
		assert.Equal(t, "succeeded", r.Status)
	}
	assert.Equal(t, []string{"end_product", "production_budget_item", "production_budget"}, kinds)
}

func TestRuntime_CostingService(t *testing.T) {
	env := newTestEnv(t)
	g := env.seedGraph(t)

	code, out, _ := env.run(t, "recalculate", "all")
	require.Equal(t, exitOK, code, out)

	total, err := env.rt.Costing.ReplaceAdditionalCosts(context.Background(), g.product.ID, []costing.AdditionalCostRequest{
		{Name: "Etiquetas", Value: decimal.RequireFromString("200.00")},
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("2700").Equal(total), total.String())
}

func TestRecalculate_MissingEntity(t *testing.T) {
	env := newTestEnv(t)

	code, _, stderr := env.run(t, "recalculate", "budgets", "--json", "--id", "0190c6d8-0000-7000-8000-000000000000")
	assert.Equal(t, exitFailure, code)
	assert.Empty(t, stderr)
}

func TestRecalculate_UsageErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"target", []string{"recalculate", "inputs"}, `unknown target "inputs"`},
		{"id", []string{"recalculate", "templates", "--id", "abc"}, "invalid --id"},
		{"all with id", []string{"recalculate", "all", "--id", "0190c6d8-0000-7000-8000-000000000000"}, "--id cannot be used with 'all'"},
		{"from", []string{"recalculate", "from", "--kind", "unit"}, "'from' requires --kind and --id"},
		{"kind", []string{"recalculate", "budgets", "--kind", "bom_item"}, "--kind is only valid with 'from'"},
		{"status", []string{"recalculate", "budgets", "--status", "archived"}, `invalid --status "archived"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := env.run(t, tt.args...)
			assert.Equal(t, exitUsage, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestMigrate_List(t *testing.T) {
	env := newTestEnv(t)

	code, out, _ := env.run(t, "migrate", "list")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "000001_init_schema")
	assert.Contains(t, out, "000002_import_histories")
}

func TestMigrate_Create(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(env.dir, "migrations")

	code, out, _ := env.run(t, "migrate", "create", "add_colors", "--path", dir)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Created migration 000001")
	assert.FileExists(t, filepath.Join(dir, "000001_add_colors.up.sql"))
	assert.FileExists(t, filepath.Join(dir, "000001_add_colors.down.sql"))
}

func TestMigrate_SQLite(t *testing.T) {
	env := newTestEnv(t)

	code, out, _ := env.run(t, "migrate", "up")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "Schema up to date")

	code, _, stderr := env.run(t, "migrate", "version")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "requires a postgres database")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitOK, ExitCode(nil))
	assert.Equal(t, exitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, exitUsage, ExitCode(usageErrorf("bad flag")))
	assert.Equal(t, exitFailure, ExitCode(reported(exitFailure)))
	assert.True(t, isSilent(reported(exitFailure)))
	assert.False(t, isSilent(withCode(exitUsage, errors.New("bad"))))
}

func TestExecute_UnexpectedErrorEnvelope(t *testing.T) {
	c := New(func(ctx context.Context) (*Runtime, func(), error) {
		return nil, nil, errors.New("dial tcp 10.0.0.5:5432: connection refused")
	})
	var stderr strings.Builder
	c.Root().SetErr(&stderr)

	code := c.Execute(context.Background(), []string{"recalculate", "all"})
	assert.Equal(t, exitFailure, code)

	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal([]byte(stderr.String()), &env))
	assert.False(t, env.Success)
	assert.NotContains(t, env.Message, "10.0.0.5")
}

func TestExecute_UnknownCommand(t *testing.T) {
	env := newTestEnv(t)

	code, _, stderr := env.run(t, "rebuild")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `unknown command "rebuild"`)
}
