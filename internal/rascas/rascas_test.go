package rascas

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/params"
	"github.com/papapumpkin/haloprep/internal/survey"
)

func testTask(t *testing.T) survey.Task {
	t.Helper()
	h := catalog.Halo{ID: 11518, Pos: catalog.Vec3{0.5, 0.5, 0.5}, Radius: 0.002}
	bundle, err := params.NewAssembler(params.DefaultPhysics()).Assemble(h, survey.DefaultBand.Optics())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	base := t.TempDir()
	return survey.Task{
		Survey:     "1500A_rf",
		HaloID:     h.ID,
		OutputDir:  survey.OutputDir(base, 183, h.ID),
		DomDumpDir: "CDD_HI_dust",
		RamsesDir:  "/ramses/02_IC20_BP",
		Timestep:   183,
		F90Dir:     "/rascas/f90",
		NPhotons:   1000000,
		Bundle:     bundle,
	}
}

func TestSetup_WritesParamFile(t *testing.T) {
	t.Parallel()
	task := testTask(t)

	r := &Runner{}
	if err := r.Setup(context.Background(), task); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	data, err := os.ReadFile(ParamFile(task))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	rvir := 0.002
	inflated := rvir * params.DefaultDecompositionInflation

	checks := []string{
		"[RASCAS]\n",
		"  DomDumpDir = CDD_HI_dust\n",
		"  snapnum = 183\n",
		"  nphotons = 1000000\n",
		"  fileout = " + filepath.Join(task.OutputDir, "1500A_rf", "00183.RASCAS") + "\n",
		"[ComputationalDomain]\n",
		"  comput_dom_rsp = 2.0000000000000000e-03\n",
		"[DomainDecomposition]\n",
		"  decomp_dom_rsp = " + params.Float(inflated) + "\n",
		"[dust]\n",
		"  albedo = " + params.Float(0.38) + "\n",
		"[HI]\n",
		"  recoil = T\n",
		"[CreateDomDump]\n",
		"  reading_method = hilbert\n",
	}
	for _, c := range checks {
		if !strings.Contains(content, c) {
			t.Errorf("param file missing %q:\n%s", c, content)
		}
	}

	if fi, err := os.Stat(filepath.Join(task.OutputDir, "CDD_HI_dust")); err != nil || !fi.IsDir() {
		t.Errorf("domain dump dir not created: %v", err)
	}
}

func TestSetup_OverwritesParamFile(t *testing.T) {
	t.Parallel()
	task := testTask(t)
	path := ParamFile(task)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	stale := strings.Repeat("stale line\n", 1000)
	if err := os.WriteFile(path, []byte(stale), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := (&Runner{}).Setup(context.Background(), task); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "stale line") {
		t.Error("stale content survived rewrite")
	}
}

func TestSetup_IncompleteTask(t *testing.T) {
	t.Parallel()
	err := (&Runner{}).Setup(context.Background(), survey.Task{Survey: "x"})
	if !errors.Is(err, ErrIncompleteTask) {
		t.Errorf("error = %v, want ErrIncompleteTask", err)
	}
}

func TestSetup_Exec(t *testing.T) {
	t.Parallel()
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	falsePath, err := exec.LookPath("false")
	if err != nil {
		t.Skip("false not available")
	}

	if err := (&Runner{Exec: truePath}).Setup(context.Background(), testTask(t)); err != nil {
		t.Errorf("Setup with %s: %v", truePath, err)
	}
	err = (&Runner{Exec: falsePath}).Setup(context.Background(), testTask(t))
	if err == nil || !strings.Contains(err.Error(), "rascas:") {
		t.Errorf("Setup with %s: error = %v, want wrapped failure", falsePath, err)
	}
}

func TestEncode_SectionOrder(t *testing.T) {
	t.Parallel()
	var sb strings.Builder
	if err := Encode(&sb, testTask(t)); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var sections []string
	for _, line := range strings.Split(sb.String(), "\n") {
		if strings.HasPrefix(line, "[") {
			sections = append(sections, strings.Trim(line, "[]"))
		}
	}
	want := []string{"RASCAS", "PhotometricTable", "ComputationalDomain", "DomainDecomposition",
		"StellarEmissionDomain", "gas_composition", "dust", "HI", "ramses", "CreateDomDump"}
	if strings.Join(sections, ",") != strings.Join(want, ",") {
		t.Errorf("sections = %v, want %v", sections, want)
	}
}
