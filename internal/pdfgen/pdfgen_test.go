package pdfgen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmcloud/k8s-clusterview/internal/snapshot"
)

func testSnapshot(pods int) snapshot.ClusterSnapshot {
	snap := snapshot.Empty()
	snap.Cluster = "kind-dev"
	snap.FetchedAt = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < pods; i++ {
		ns := "shop"
		if i%2 == 1 {
			ns = "kube-system"
		}
		snap.Pods = append(snap.Pods, snapshot.PodView{
			Name: fmt.Sprintf("web-%d-with-a-rather-long-generated-suffix-abcdef", i), Namespace: ns,
			Status: "Running", Ready: "1/1", Restarts: int64(i), Age: "1d",
		})
	}
	snap.Nodes = []snapshot.NodeView{{Name: "node-1", Status: "Ready", Roles: "control-plane", Version: "v1.30.1"}}
	snap.Services = []snapshot.ServiceView{{Name: "web", Namespace: "shop", Type: "LoadBalancer", ExternalIP: "lb.example.com", Ports: "80:8080/TCP"}}
	return snap
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer

	err := Write(&buf, testSnapshot(3), snapshot.AllNamespaces)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWrite_PagesLargeTables(t *testing.T) {
	var small, large bytes.Buffer

	require.NoError(t, Write(&small, testSnapshot(2), ""))
	require.NoError(t, Write(&large, testSnapshot(200), ""))

	assert.Greater(t, bytes.Count(large.Bytes(), []byte("/Type /Page\n")), 1)
	assert.Greater(t, large.Len(), small.Len())
}

func TestWrite_EmptySnapshot(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, Write(&buf, snapshot.Empty(), "shop"))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWrite_NonASCII(t *testing.T) {
	snap := testSnapshot(1)
	snap.Cluster = "clúster-producción"
	snap.Pods[0].Name = "señal-ñ"

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, snap, ""))
}

func TestGenerateReportPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")

	require.NoError(t, GenerateReportPDF(testSnapshot(1), "shop", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestFit(t *testing.T) {
	g := New()
	g.pdf.AddPage()
	g.pdf.SetFont("Arial", "", 8)

	assert.Equal(t, "web", g.fit("web", 50))

	long := "a-very-long-pod-name-that-cannot-possibly-fit-in-a-narrow-column"
	got := g.fit(long, 20)
	assert.LessOrEqual(t, g.pdf.GetStringWidth(got), 20.0)
	assert.Contains(t, got, "..")
}

func TestFit_NonASCII(t *testing.T) {
	g := New()
	g.pdf.AddPage()
	g.pdf.SetFont("Arial", "", 8)

	assert.Equal(t, g.tr("señal"), g.fit("señal", 50))

	long := strings.Repeat("ñ", 40)
	got := g.fit(long, 20)
	assert.LessOrEqual(t, g.pdf.GetStringWidth(got), 20.0)
	assert.NotContains(t, got, "\uFFFD")
	assert.True(t, strings.HasSuffix(got, ".."))
	prefix := strings.TrimSuffix(got, "..")
	require.NotEmpty(t, prefix)
	assert.Equal(t, g.tr(strings.Repeat("ñ", len(prefix))), prefix, "every kept character is translated once")
}
