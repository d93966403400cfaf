package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/textileplan/backend/internal/application/costing"
	"github.com/textileplan/backend/internal/domain/production"
)

type recalculateOptions struct {
	id       string
	kind     string
	statuses []string
	dryRun   bool
	json     bool
}

func newRecalculateCmd(a *app) *cobra.Command {
	var opts recalculateOptions

	cmd := &cobra.Command{
		Use:   "recalculate <templates|products|budgets|all|from>",
		Short: "Recompute derived costs",
		Long: `Recompute derived costs bottom-up.

  templates   BOM lines and template totals (--id for one template)
  products    product costs (--id also updates the budgets using it)
  budgets     budget lines and totals (--id for one, --status to filter)
  all         every line, template, product, budget line and budget
  from        everything that depends on --kind/--id, e.g. after a price change

Each entity is saved in its own transaction; a failing entity keeps its
old value and the run continues. --dry-run reports the changes without
saving them.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecalculate(cmd, a, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.id, "id", "", "Entity ID")
	f.StringVar(&opts.kind, "kind", "", "Node kind for 'from': input_provider, bom_item, bom_template, end_product, production_budget_item, production_budget")
	f.StringSliceVar(&opts.statuses, "status", nil, "Budget statuses to include: draft, approved, in_progress, completed")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Report the changes without saving them")
	f.BoolVar(&opts.json, "json", false, "Print the report as JSON, or the trigger answer for single-kind runs")
	return cmd
}

func runRecalculate(cmd *cobra.Command, a *app, target string, opts recalculateOptions) error {
	id, err := opts.parseID(target)
	if err != nil {
		return err
	}
	statuses, err := opts.parseStatuses()
	if err != nil {
		return err
	}

	rt, ctx, err := a.runtime(cmd)
	if err != nil {
		return err
	}
	engine := rt.Engine
	out := cmd.OutOrStdout()

	// single-kind runs answer with the trigger envelope in JSON mode;
	// a single product propagates and prints the report instead
	if opts.json && !opts.dryRun {
		if env, ok := triggerFor(ctx, rt.Triggers, target, id, statuses); ok {
			writeJSON(out, env)
			if !env.Success {
				return reported(exitFailure)
			}
			return nil
		}
	}

	var run func(ctx context.Context) (*costing.Report, error)
	switch target {
	case "templates":
		run = engine.RecalculateTemplates
		if id != uuid.Nil {
			run = func(ctx context.Context) (*costing.Report, error) { return engine.RecalculateTemplate(ctx, id) }
		}
	case "products":
		run = engine.RecalculateProducts
		if id != uuid.Nil {
			run = func(ctx context.Context) (*costing.Report, error) {
				return engine.PropagateFrom(ctx, costing.Ref(costing.KindEndProduct, id))
			}
		}
	case "budgets":
		run = func(ctx context.Context) (*costing.Report, error) { return engine.RecalculateBudgets(ctx, statuses...) }
		if id != uuid.Nil {
			run = func(ctx context.Context) (*costing.Report, error) { return engine.RecalculateBudget(ctx, id) }
		}
	case "all":
		run = engine.RecalculateAll
	case "from":
		node := costing.Ref(costing.NodeKind(opts.kind), id)
		run = func(ctx context.Context) (*costing.Report, error) { return engine.PropagateFrom(ctx, node) }
	}

	var report *costing.Report
	if opts.dryRun {
		report, err = engine.DryRun(ctx, run)
	} else {
		report, err = run(ctx)
	}
	if err != nil {
		return err
	}

	if opts.json {
		writeJSON(out, report)
	} else {
		printReport(out, report)
	}
	if report.Failed() > 0 {
		return reported(exitFailure)
	}
	return nil
}

func triggerFor(ctx context.Context, t *costing.Triggers, target string, id uuid.UUID, statuses []production.BudgetStatus) (costing.Envelope, bool) {
	switch {
	case target == "templates" && id != uuid.Nil:
		return t.RecalculateTemplate(ctx, id), true
	case target == "templates":
		return t.RecalculateAllTemplates(ctx), true
	case target == "products" && id == uuid.Nil:
		return t.RecalculateAllProducts(ctx), true
	case target == "budgets" && id != uuid.Nil:
		return t.RecalculateBudget(ctx, id), true
	case target == "budgets":
		return t.RecalculateAllBudgets(ctx, statuses...), true
	}
	return costing.Envelope{}, false
}

func printReport(w io.Writer, report *costing.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tNAME\tOLD\tNEW\tDIFF\tSTATUS")
	for _, r := range report.Results {
		status := string(r.Status)
		if r.Message != "" {
			status += ": " + r.Message
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Node.Kind, displayName(r), r.OldValue.StringFixed(2), r.NewValue.StringFixed(2),
			r.Difference().StringFixed(2), status)
	}
	_ = tw.Flush()

	prefix := ""
	if report.DryRun {
		prefix = "Dry run, nothing saved. "
	}
	fmt.Fprintf(w, "%s%d updated, %d failed\n", prefix, report.Succeeded(), report.Failed())
}

func displayName(r costing.EntityResult) string {
	if r.Name != "" {
		return r.Name
	}
	return r.Node.ID.String()
}

func (o recalculateOptions) parseID(target string) (uuid.UUID, error) {
	switch target {
	case "templates", "products", "budgets", "all", "from":
	default:
		return uuid.Nil, usageErrorf("unknown target %q (templates, products, budgets, all, from)", target)
	}

	var id uuid.UUID
	if o.id != "" {
		parsed, err := uuid.Parse(strings.TrimSpace(o.id))
		if err != nil {
			return uuid.Nil, usageErrorf("invalid --id: %v", err)
		}
		id = parsed
	}

	switch {
	case target == "all" && id != uuid.Nil:
		return uuid.Nil, usageErrorf("--id cannot be used with 'all'")
	case target == "from" && (id == uuid.Nil || !costing.NodeKind(o.kind).IsValid()):
		return uuid.Nil, usageErrorf("'from' requires --kind and --id")
	case target != "from" && o.kind != "":
		return uuid.Nil, usageErrorf("--kind is only valid with 'from'")
	}
	return id, nil
}

func (o recalculateOptions) parseStatuses() ([]production.BudgetStatus, error) {
	statuses := make([]production.BudgetStatus, 0, len(o.statuses))
	for _, s := range o.statuses {
		status := production.BudgetStatus(strings.TrimSpace(s))
		if !status.IsValid() {
			return nil, usageErrorf("invalid --status %q", s)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
