package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/virtkube/virtkube/internal/bootstrap"
	"github.com/virtkube/virtkube/internal/fleet"
	"github.com/virtkube/virtkube/internal/k8s"
	"github.com/virtkube/virtkube/internal/plan"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorBlue  = lipgloss.Color("#3b82f6")
	colorAmber = lipgloss.Color("#f59e0b")
	colorDim   = lipgloss.Color("#6b7280")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	greenStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	amberStyle = lipgloss.NewStyle().
			Foreground(colorAmber)

	redStyle = lipgloss.NewStyle().
			Foreground(colorRed)
)

// renderPlan produces a styled summary of the actions a reconciliation
// would take.
func renderPlan(clusterName string, p *plan.ReconciliationPlan) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  virtkube plan: %s", clusterName)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n")

	if p.Empty() {
		b.WriteString("\n")
		b.WriteString(greenStyle.Render("  Fleet matches the spec, nothing to do."))
		b.WriteString("\n")
		return b.String()
	}

	if creates := p.Creates(); len(creates) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("  Create"))
		b.WriteString("\n")
		for _, a := range creates {
			fmt.Fprintf(&b, "    %s %s\n", greenStyle.Render("+"), a.Key())
		}
	}

	if destroys := p.Destroys(); len(destroys) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("  Destroy"))
		b.WriteString("\n")
		for _, a := range destroys {
			fmt.Fprintf(&b, "    %s %s (%s)\n", redStyle.Render("-"), a.Key(), a.Record.Hostname)
		}
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  Plan: %s to create, %s to destroy\n",
		greenStyle.Render(fmt.Sprintf("%d", len(p.Creates()))),
		redStyle.Render(fmt.Sprintf("%d", len(p.Destroys()))),
	)
	return b.String()
}

// renderFleet produces a styled node table from persisted records.
func renderFleet(clusterName string, records []fleet.NodeRecord) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  virtkube status: %s", clusterName)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	if len(records) == 0 {
		b.WriteString(dimStyle.Render("  No nodes recorded. Run 'virtkube apply' to provision the fleet."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(sectionStyle.Render("  Fleet"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %-24s %-14s %-16s %s", "Node", "Role", "IP", "Status")))
	b.WriteString("\n")
	for _, rec := range records {
		ip := rec.IP
		if ip == "" {
			ip = "-"
		}
		line := fmt.Sprintf("  %-24s %-14s %-16s %s", rec.Hostname, rec.Role, ip, styledStatus(rec.Status))
		b.WriteString(line)
		b.WriteString("\n")
		if rec.Status == fleet.StatusFailed && rec.Error != "" {
			b.WriteString(redStyle.Render("      " + rec.Error))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// renderClusterNodes appends the Kubernetes view of the cluster.
func renderClusterNodes(statuses []k8s.NodeStatus) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("  Cluster"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %-24s %s", "Node", "Condition")))
	b.WriteString("\n")
	for _, s := range statuses {
		cond := greenStyle.Render("Ready")
		if !s.Ready {
			cond = redStyle.Render("NotReady")
		}
		fmt.Fprintf(&b, "  %-24s %s\n", s.Name, cond)
	}
	return b.String()
}

// renderBootstrap produces the per-node roll-up of a bootstrap run.
func renderBootstrap(clusterName string, result *bootstrap.Result) string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render(fmt.Sprintf("  virtkube bootstrap: %s", clusterName)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	for _, n := range result.Nodes {
		if n.Err != nil {
			fmt.Fprintf(&b, "  %s %-24s %v\n", redStyle.Render("✗"), n.Hostname, n.Err)
		} else {
			fmt.Fprintf(&b, "  %s %-24s joined\n", greenStyle.Render("✓"), n.Hostname)
		}
	}

	b.WriteString("\n  Outcome: ")
	b.WriteString(styledOutcome(result.Outcome))
	b.WriteString("\n")
	return b.String()
}

func styledStatus(s fleet.Status) string {
	switch s {
	case fleet.StatusReady:
		return greenStyle.Render(string(s))
	case fleet.StatusFailed:
		return redStyle.Render(string(s))
	case fleet.StatusPending, fleet.StatusCreated, fleet.StatusBooting:
		return amberStyle.Render(string(s))
	default:
		return string(s)
	}
}

func styledOutcome(o bootstrap.Outcome) string {
	switch o {
	case bootstrap.OutcomeFormed:
		return greenStyle.Render(string(o))
	case bootstrap.OutcomePartiallyFormed:
		return amberStyle.Render(string(o))
	default:
		return redStyle.Render(string(o))
	}
}
