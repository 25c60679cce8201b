package config_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stepseq/stepseq/config"
)

func TestLoadMissing(t *testing.T) {
	c, err := config.Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("expected no error for a missing file, got %v", err)
	}
	if !reflect.DeepEqual(c, config.Default()) {
		t.Fatalf("got %+v, want the defaults", c)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "stepseq.toml")
	c := config.Default()
	c.History.MaxLength = 25
	c.Server.Watch = true
	c.Storage.Dir = "/tmp/songs"
	if err := config.Save(path, c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(got, c) {
		t.Fatalf("got %+v, want %+v", got, c)
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stepseq.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Server.Addr != ":9000" || c.History.MaxLength != 100 {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestLoadInvalid(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":     "[history\nmax_length = 3",
		"max length": "[history]\nmax_length = 0\n",
	} {
		path := filepath.Join(t.TempDir(), "stepseq.toml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := config.Load(path); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}
