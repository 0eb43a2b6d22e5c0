package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeComponents(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"reactant1.csv": "name,f1,f2\nA,1,2\nB,3,4\n",
		"reactant2.csv": "name,f1\nX,9\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := writeComponents(t)

	out, err := execute(t, "build", "--dir", dir, "reactant1.csv", "reactant2.csv")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "wrote 2 reactions x 3 features") {
		t.Errorf("unexpected output: %q", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "reaction_space.csv"))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	want := ",comp1_f1,comp1_f2,comp2_f1\nA.X,1.0,2.0,9.0\nB.X,3.0,4.0,9.0\n"
	if string(data) != want {
		t.Errorf("output mismatch:\ngot:  %q\nwant: %q", data, want)
	}
}

func TestBuildCommandRerun(t *testing.T) {
	dir := writeComponents(t)
	args := []string{"build", "--dir", dir, "reactant1.csv", "reactant2.csv"}

	if out, err := execute(t, args...); err != nil {
		t.Fatalf("first build: %v\n%s", err, out)
	}

	out, err := execute(t, args...)
	if err != nil {
		t.Fatalf("second build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "reaction space is up to date") {
		t.Errorf("unexpected output: %q", out)
	}

	if err := os.WriteFile(filepath.Join(dir, "reactant2.csv"), []byte("name,f1\nY,7\n"), 0644); err != nil {
		t.Fatalf("rewrite component: %v", err)
	}
	if _, err := execute(t, args...); err == nil {
		t.Fatal("changed inputs should not replace the output without --overwrite")
	}
}

func TestSchemaCommandJSON(t *testing.T) {
	dir := writeComponents(t)

	out, err := execute(t, "schema", "--dir", dir, "--json", "reactant1.csv", "reactant2.csv")
	if err != nil {
		t.Fatalf("schema: %v\n%s", err, out)
	}

	var got schemaOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parse output: %v\n%s", err, out)
	}
	if strings.Join(got.Columns, ",") != "comp1_f1,comp1_f2,comp2_f1" {
		t.Errorf("columns = %v", got.Columns)
	}
	if got.Entries != 2 || len(got.Components) != 2 {
		t.Errorf("schema = %+v", got)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "rxnspace ") {
		t.Errorf("unexpected output: %q", out)
	}
}
