package pdfgen

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

const (
	pageWidth    = 210.0
	margin       = 10.0
	bottomMargin = 15.0
	rowHeight    = 6.0
)

type column struct {
	title string
	width float64
	align string
}

type PDFGenerator struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func New() *PDFGenerator {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, bottomMargin)

	g := &PDFGenerator{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
	pdf.SetFooterFunc(g.addFooter)
	return g
}

// Write renders snap scoped to namespace and writes the document to w.
func Write(w io.Writer, snap snapshot.ClusterSnapshot, namespace string) error {
	return New().Render(w, snap, namespace)
}

// GenerateReportPDF renders snap into a file at outputPath.
func GenerateReportPDF(snap snapshot.ClusterSnapshot, namespace, outputPath string) error {
	g := New()
	g.build(snapshot.FilterNamespace(snap, namespace), namespace)
	if err := g.pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// Render draws one table per resource kind.
func (g *PDFGenerator) Render(w io.Writer, snap snapshot.ClusterSnapshot, namespace string) error {
	g.build(snapshot.FilterNamespace(snap, namespace), namespace)
	if err := g.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render PDF: %w", err)
	}
	return nil
}

func (g *PDFGenerator) build(snap snapshot.ClusterSnapshot, namespace string) {
	g.pdf.AddPage()

	g.addHeader(snap.Cluster)
	g.pdf.Ln(3)
	g.addTimestamp(snap, namespace)
	g.pdf.Ln(6)

	g.addSummary(snap)

	g.addPods(snap.Pods)
	g.addNodes(snap.Nodes)
	g.addDeployments(snap.Deployments)
	g.addServices(snap.Services)
}

func (g *PDFGenerator) addHeader(cluster string) {
	// Banner: #6C62FF
	g.pdf.SetFillColor(108, 98, 255)
	g.pdf.Rect(0, 0, pageWidth, 40, "F")

	g.pdf.Ln(6)
	g.pdf.SetFont("Arial", "B", 22)
	g.pdf.SetTextColor(255, 255, 255)
	g.pdf.CellFormat(0, 12, "Cluster Snapshot", "", 1, "C", false, 0, "")

	g.pdf.SetFont("Arial", "", 12)
	g.pdf.CellFormat(0, 8, g.tr(fmt.Sprintf("Cluster: %s", cluster)), "", 1, "C", false, 0, "")
	g.pdf.SetY(42)
}

func (g *PDFGenerator) addTimestamp(snap snapshot.ClusterSnapshot, namespace string) {
	scope := namespace
	if snapshot.IsAllNamespaces(namespace) {
		scope = snapshot.AllNamespaces
	}

	fetched := "never"
	if !snap.IsZero() {
		fetched = snap.FetchedAt.UTC().Format("Monday, January 2, 2006 at 15:04 MST")
	}

	g.pdf.SetFont("Arial", "I", 9)
	g.pdf.SetTextColor(120, 120, 120)
	g.pdf.CellFormat(0, 6, g.tr(fmt.Sprintf("Fetched: %s  |  Namespace: %s", fetched, scope)), "", 1, "C", false, 0, "")
}

func (g *PDFGenerator) addSummary(snap snapshot.ClusterSnapshot) {
	counts := []struct {
		label string
		n     int
	}{
		{"Pods", len(snap.Pods)},
		{"Nodes", len(snap.Nodes)},
		{"Deployments", len(snap.Deployments)},
		{"Services", len(snap.Services)},
	}

	width := (pageWidth - 2*margin) / float64(len(counts))
	y := g.pdf.GetY()
	for i, c := range counts {
		x := margin + float64(i)*width
		g.pdf.SetFillColor(240, 245, 255)
		g.pdf.Rect(x+1, y, width-2, 16, "F")

		g.pdf.SetXY(x, y+1)
		g.pdf.SetFont("Arial", "B", 14)
		g.pdf.SetTextColor(0, 51, 102)
		g.pdf.CellFormat(width, 8, strconv.Itoa(c.n), "", 0, "C", false, 0, "")
		g.pdf.SetXY(x, y+9)
		g.pdf.SetFont("Arial", "", 8)
		g.pdf.SetTextColor(80, 80, 80)
		g.pdf.CellFormat(width, 5, c.label, "", 0, "C", false, 0, "")
	}
	g.pdf.SetXY(margin, y+20)
}

func (g *PDFGenerator) addPods(pods []snapshot.PodView) {
	columns := []column{
		{"Name", 60, "L"}, {"Namespace", 40, "L"}, {"Status", 25, "L"},
		{"Ready", 20, "C"}, {"Restarts", 20, "R"}, {"Age", 25, "R"},
	}
	rows := make([][]string, 0, len(pods))
	for _, p := range pods {
		rows = append(rows, []string{p.Name, p.Namespace, p.Status, p.Ready, strconv.FormatInt(p.Restarts, 10), p.Age})
	}
	g.addTable("Pods", columns, rows)
}

func (g *PDFGenerator) addNodes(nodes []snapshot.NodeView) {
	columns := []column{
		{"Name", 45, "L"}, {"Status", 20, "L"}, {"Roles", 35, "L"}, {"Version", 25, "L"},
		{"Internal IP", 28, "L"}, {"Instance type", 24, "L"}, {"Age", 13, "R"},
	}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{n.Name, n.Status, n.Roles, n.Version, n.InternalIP, n.InstanceType, n.Age})
	}
	g.addTable("Nodes", columns, rows)
}

func (g *PDFGenerator) addDeployments(deployments []snapshot.DeploymentView) {
	columns := []column{
		{"Name", 70, "L"}, {"Namespace", 45, "L"}, {"Desired", 20, "R"},
		{"Available", 20, "R"}, {"Ready", 20, "R"}, {"Age", 15, "R"},
	}
	rows := make([][]string, 0, len(deployments))
	for _, d := range deployments {
		rows = append(rows, []string{
			d.Name, d.Namespace,
			strconv.Itoa(int(d.DesiredReplicas)), strconv.Itoa(int(d.AvailableReplicas)), strconv.Itoa(int(d.ReadyReplicas)),
			d.Age,
		})
	}
	g.addTable("Deployments", columns, rows)
}

func (g *PDFGenerator) addServices(services []snapshot.ServiceView) {
	columns := []column{
		{"Name", 38, "L"}, {"Namespace", 28, "L"}, {"Type", 24, "L"}, {"Cluster IP", 25, "L"},
		{"External IP", 35, "L"}, {"Ports", 28, "L"}, {"Age", 12, "R"},
	}
	rows := make([][]string, 0, len(services))
	for _, s := range services {
		rows = append(rows, []string{s.Name, s.Namespace, s.Type, s.ClusterIP, s.ExternalIP, s.Ports, s.Age})
	}
	g.addTable("Services", columns, rows)
}

func (g *PDFGenerator) addTable(title string, columns []column, rows [][]string) {
	g.addSectionTitle(fmt.Sprintf("%s (%d)", title, len(rows)))

	if len(rows) == 0 {
		g.pdf.SetFont("Arial", "I", 9)
		g.pdf.SetTextColor(120, 120, 120)
		g.pdf.CellFormat(0, rowHeight, "No records", "", 1, "L", false, 0, "")
		g.pdf.Ln(4)
		return
	}

	g.addTableHeader(columns)
	_, pageHeight := g.pdf.GetPageSize()
	for i, row := range rows {
		if g.pdf.GetY()+rowHeight > pageHeight-bottomMargin {
			g.pdf.AddPage()
			g.addTableHeader(columns)
		}

		g.pdf.SetFont("Arial", "", 8)
		g.pdf.SetTextColor(40, 40, 40)
		// Zebra rows
		fill := i%2 == 1
		g.pdf.SetFillColor(248, 247, 255)
		for j, col := range columns {
			text := g.fit(row[j], col.width-2)
			g.pdf.CellFormat(col.width, rowHeight, text, "B", 0, col.align, fill, 0, "")
		}
		g.pdf.Ln(-1)
	}
	g.pdf.Ln(6)
}

func (g *PDFGenerator) addSectionTitle(text string) {
	_, pageHeight := g.pdf.GetPageSize()
	// Keep the title together with the header row and at least one record.
	if g.pdf.GetY()+8+3*rowHeight > pageHeight-bottomMargin {
		g.pdf.AddPage()
	}

	currentY := g.pdf.GetY()
	g.pdf.SetFillColor(108, 98, 255)
	g.pdf.Rect(margin, currentY, 3, 7, "F")

	g.pdf.SetX(margin + 5)
	g.pdf.SetFont("Arial", "B", 13)
	g.pdf.SetTextColor(0, 51, 102)
	g.pdf.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
	g.pdf.Ln(2)
}

func (g *PDFGenerator) addTableHeader(columns []column) {
	g.pdf.SetFont("Arial", "B", 8)
	g.pdf.SetTextColor(255, 255, 255)
	g.pdf.SetFillColor(0, 51, 102)
	for _, col := range columns {
		g.pdf.CellFormat(col.width, rowHeight+1, col.title, "", 0, col.align, true, 0, "")
	}
	g.pdf.Ln(-1)
}

// fit translates text for the core fonts, shortening it with a trailing ".."
// until it fits width. Truncation works on the UTF-8 text so multi-byte
// characters are never split.
func (g *PDFGenerator) fit(text string, width float64) string {
	if translated := g.tr(text); g.pdf.GetStringWidth(translated) <= width {
		return translated
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := g.tr(string(runes) + "..")
		if g.pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}

func (g *PDFGenerator) addFooter() {
	g.pdf.SetY(-12)
	g.pdf.SetFont("Arial", "I", 8)
	g.pdf.SetTextColor(150, 150, 150)
	g.pdf.CellFormat(0, 6, fmt.Sprintf("k8s-clusterview  |  Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
}
