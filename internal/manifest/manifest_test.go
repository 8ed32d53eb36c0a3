package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPath(t *testing.T) {
	t.Parallel()
	got := Path("/scratch/rascas", 183)
	want := filepath.Join("/scratch/rascas", "00183", "haloid_list.dat")
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}

func TestWrite_Format(t *testing.T) {
	t.Parallel()
	path := Path(t.TempDir(), 183)

	if err := Write(path, []int64{11518, 12763}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got, want := string(data), "Halo IDs \n11518 \n12763 \n"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestWrite_HeaderOnly(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), FileName)

	if err := Write(path, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if got := string(data); got != "Halo IDs \n" {
		t.Errorf("content = %q, want header only", got)
	}
}

func TestWrite_Truncates(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), FileName)

	if err := Write(path, []int64{1, 2, 3, 4, 5, 6}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := Write(path, []int64{9}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if got := string(data); got != "Halo IDs \n9 \n" {
		t.Errorf("content = %q, want only the second run", got)
	}
}

func TestWrite_Error(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "00183")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := Write(filepath.Join(blocker, FileName), []int64{1})
	if !errors.Is(err, ErrManifestWrite) {
		t.Fatalf("error = %v, want ErrManifestWrite", err)
	}
	var we *WriteError
	if !errors.As(err, &we) || we.Path != filepath.Join(blocker, FileName) {
		t.Errorf("want *WriteError with path, got %v", err)
	}
}

func TestManifest_Accumulates(t *testing.T) {
	t.Parallel()
	var m Manifest
	m.Add(3)
	m.Add(1, 2)

	ids := m.IDs()
	if diff := cmp.Diff([]int64{3, 1, 2}, ids); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	ids[0] = 99
	if m.IDs()[0] != 3 {
		t.Error("IDs returned internal slice")
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d, want 3", m.Len())
	}

	path := filepath.Join(t.TempDir(), FileName)
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	back, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := cmp.Diff([]int64{3, 1, 2}, back); diff != "" {
		t.Errorf("Read mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{"no header", "11518 \n", ErrBadHeader},
		{"empty", "", ErrBadHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".dat")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Read(path); !errors.Is(err, tt.wantErr) {
				t.Errorf("Read error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	bad := filepath.Join(dir, "bad.dat")
	os.WriteFile(bad, []byte("Halo IDs \nnot-a-number \n"), 0o644)
	if _, err := Read(bad); err == nil {
		t.Error("expected parse error")
	}
}
