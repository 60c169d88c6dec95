package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const csvHeader = "APELLIDOS/NOMBRES,Nota Trimemestre,Cualitativa,Aporte Individual,Aporte Grupal,Proyecto,Examen,Falta Injustificada,Falta Justificada,Comportamiento\n"

// resetFlags puts every flag back to its default so bound variables do not
// leak between invocations of rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

// isolate points HOME at a temp dir so config and data stay inside the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("GRADELOOM_OWNER", "prof")
	t.Setenv("GRADELOOM_DB_DRIVER", "sqlite")
	t.Setenv("GRADELOOM_DEFAULT_PROVIDER", "ollama")
	t.Setenv("GRADELOOM_DEFAULT_MODEL", "gemma3:12b")
	t.Setenv("GRADELOOM_DATA_DIR", filepath.Join(home, "data"))
	return home
}

func writeTermCSVs(t *testing.T, dir string) []string {
	t.Helper()
	bodies := []string{
		csvHeader + "Ana Pérez,6,Próximo,6,6,6,6,2,,A\nLuis Mora,9,Domina,9,9,9,9,,1,B\n",
		csvHeader + "Ana Pérez,8,Alcanza,8,8,8,8,,,F\nLuis Mora,9.5,Domina,9,9,10,10,1,,A\nEva Ruiz,5,Inicio,5,5,5,5,,,A\n",
	}
	var paths []string
	for i, b := range bodies {
		p := filepath.Join(dir, fmt.Sprintf("T%d.csv", i+1))
		if err := os.WriteFile(p, []byte(b), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
		paths = append(paths, p)
	}
	return paths
}

var idLine = regexp.MustCompile(`(?m)^ID: (\S+)$`)

func idFrom(t *testing.T, out string) string {
	t.Helper()
	m := idLine.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no ID line in output:\n%s", out)
	}
	return m[1]
}

func TestCLI_AnalyzeJSON(t *testing.T) {
	home := isolate(t)
	paths := writeTermCSVs(t, home)

	out := mustRun(t, append([]string{"analyze", "--json"}, paths...)...)
	var rep struct {
		Status struct {
			Passed int      `json:"passed"`
			AtRisk []string `json:"at_risk"`
		} `json:"cumulative_status"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode analyze output: %v\n%s", err, out)
	}
	if rep.Status.Passed != 2 || len(rep.Status.AtRisk) != 1 || rep.Status.AtRisk[0] != "Eva Ruiz" {
		t.Fatalf("unexpected status: %+v", rep.Status)
	}

	out = mustRun(t, append([]string{"analyze", "--student", "Ana Pérez"}, paths...)...)
	if !strings.Contains(out, "improved in the second period") {
		t.Fatalf("expected student evolution in output:\n%s", out)
	}
}

func TestCLI_UploadReportHistoryDashboard(t *testing.T) {
	home := isolate(t)
	paths := writeTermCSVs(t, home)

	out := mustRun(t, append([]string{"upload"}, paths...)...)
	if !strings.Contains(out, "File uploaded: T1.csv, T2.csv") || !strings.Contains(out, "Students: 3") {
		t.Fatalf("unexpected upload output:\n%s", out)
	}
	fileID := idFrom(t, out)

	if out := mustRun(t, "files", "list"); !strings.Contains(out, fileID) {
		t.Fatalf("files list missing %s:\n%s", fileID, out)
	}
	if out := mustRun(t, "files", "students"); !strings.Contains(out, "- Eva Ruiz") {
		t.Fatalf("students missing Eva Ruiz:\n%s", out)
	}

	pdfPath := filepath.Join(home, "out", "grupal.pdf")
	out = mustRun(t, "report", "group", "--no-ai", "-o", pdfPath)
	reportID := idFrom(t, out)
	b, err := os.ReadFile(pdfPath)
	if err != nil || !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("expected PDF at %s (err=%v)", pdfPath, err)
	}

	out = mustRun(t, "report", "student", "Ana Pérez", "--dry-run")
	if !strings.Contains(out, "--dry-run") || !strings.Contains(out, `"student": "Ana Pérez"`) {
		t.Fatalf("unexpected dry-run output:\n%s", out)
	}

	out = mustRun(t, "history", "list")
	if !strings.Contains(out, "Reporte Grupal - T1.csv, T2.csv") || !strings.Contains(out, "fallback") {
		t.Fatalf("unexpected history:\n%s", out)
	}
	if strings.Contains(out, "Reporte Individual") {
		t.Fatalf("dry-run must not be recorded:\n%s", out)
	}

	exported := filepath.Join(home, "export.pdf")
	mustRun(t, "history", "export", reportID, "-o", exported)
	if got, _ := os.ReadFile(exported); !bytes.Equal(got, b) {
		t.Fatalf("exported PDF differs from the generated one")
	}

	out = mustRun(t, "dashboard", "--json")
	if !strings.Contains(out, `"passed": 2`) || !strings.Contains(out, time.Now().Format("/2006")) {
		t.Fatalf("unexpected dashboard:\n%s", out)
	}

	mustRun(t, "files", "delete", fileID)
	if out := mustRun(t, "dashboard"); !strings.Contains(out, "no active file") {
		t.Fatalf("expected empty dashboard after delete:\n%s", out)
	}
}

func TestCLI_ReportWithOllama(t *testing.T) {
	home := isolate(t)
	paths := writeTermCSVs(t, home)

	var chats atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[{"name":"gemma3:12b"}]}`))
	})
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		chats.Add(1)
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "gemma3:12b" {
			http.Error(w, "model not found", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"model":"gemma3:12b","message":{"role":"assistant","content":"## Resumen\n- Todo bien"},"done":true,"prompt_eval_count":10,"eval_count":5}`))
	})
	url := serveIPv4(t, mux)

	mustRun(t, append([]string{"upload"}, paths...)...)
	out := mustRun(t, "report", "group", "--ollama-host", url)
	if chats.Load() != 1 {
		t.Fatalf("expected one chat call, got %d", chats.Load())
	}
	id := idFrom(t, out)
	if out := mustRun(t, "history", "show", id); !strings.Contains(out, "Todo bien") || !strings.Contains(out, "Model: gemma3:12b") {
		t.Fatalf("unexpected history show:\n%s", out)
	}
}

func TestCLI_RootFlagsOverrideConfig(t *testing.T) {
	isolate(t)
	out := mustRun(t, "config", "show")
	if !strings.Contains(out, "owner: prof\n") {
		t.Fatalf("expected owner from environment:\n%s", out)
	}
	out = mustRun(t, "--owner", "otra", "config", "show")
	if !strings.Contains(out, "owner: otra\n") {
		t.Fatalf("expected --owner to win:\n%s", out)
	}
	// Flags do not stick to the next invocation.
	if out := mustRun(t, "config", "show"); !strings.Contains(out, "owner: prof\n") {
		t.Fatalf("owner leaked between runs:\n%s", out)
	}
}

func TestCLI_Errors(t *testing.T) {
	isolate(t)
	if _, err := runCmd(t, "report", "group", "--no-ai"); err == nil || !strings.Contains(err.Error(), "upload") {
		t.Fatalf("expected hint to upload first, got %v", err)
	}
	if _, err := runCmd(t, "files", "activate", "00000000-0000-0000-0000-000000000000"); err == nil {
		t.Fatalf("expected not found error")
	}
	if _, err := runCmd(t, "report", "group", "--file", "not-a-uuid"); err == nil || !strings.Contains(err.Error(), "file") {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := runCmd(t, "config", "set", "language", "klingon"); err == nil {
		t.Fatalf("expected invalid language error")
	}
}

// serveIPv4 serves handler on 127.0.0.1 so tests work on hosts without IPv6.
func serveIPv4(t *testing.T, handler http.Handler) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return "http://" + ln.Addr().String()
}
